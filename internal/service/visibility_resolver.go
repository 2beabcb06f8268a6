package service

import "github.com/noah-isme/manabi-api/internal/models"

// ResolveVisibleMaterials returns the materials a student may see.
//
// all returns every material and none returns nothing; both ignore overrides.
// custom keeps only materials with an override row marked visible, so a material
// without a row is hidden. Any other mode is treated as all.
func ResolveVisibleMaterials(mode models.VisibilityMode, materials []models.Material, overrides []models.VisibilityOverride) []models.Material {
	switch mode {
	case models.VisibilityModeNone:
		return []models.Material{}
	case models.VisibilityModeCustom:
		visible := make(map[string]bool, len(overrides))
		for _, o := range overrides {
			visible[o.MaterialID] = o.Visible
		}
		out := make([]models.Material, 0, len(materials))
		for _, m := range materials {
			if visible[m.ID] {
				out = append(out, m)
			}
		}
		return out
	default:
		out := make([]models.Material, len(materials))
		copy(out, materials)
		return out
	}
}
