package dto

import "github.com/noah-isme/manabi-api/internal/models"

// StudentVisibilityResponse describes a student's mode and explicitly visible materials.
type StudentVisibilityResponse struct {
	Email       string   `json:"email"`
	Mode        string   `json:"mode"`
	SelectedIDs []string `json:"selectedIds"`
}

// UpdateStudentVisibilityRequest sets a student's mode and selection. An empty mode means custom.
type UpdateStudentVisibilityRequest struct {
	Mode        string   `json:"mode" validate:"omitempty,oneof=all none custom"`
	SelectedIDs []string `json:"selectedIds" validate:"omitempty,dive,required"`
}

// VisibilityEntry is one student's flag for a material.
type VisibilityEntry struct {
	StudentEmail string `json:"student_email" validate:"required,email"`
	Visible      bool   `json:"visible"`
}

// MaterialVisibilityResponse lists the override rows stored for a material.
type MaterialVisibilityResponse struct {
	Entries []VisibilityEntry `json:"entries"`
}

// UpdateMaterialVisibilityRequest upserts per-student flags for one material.
type UpdateMaterialVisibilityRequest struct {
	Entries []VisibilityEntry `json:"entries" validate:"dive"`
}

// NewVisibilityEntries maps override rows to entries, never returning nil.
func NewVisibilityEntries(rows []models.VisibilityOverride) []VisibilityEntry {
	out := make([]VisibilityEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, VisibilityEntry{StudentEmail: row.StudentEmail, Visible: row.Visible})
	}
	return out
}

// SelectedIDs returns the material ids whose override is visible, in row order.
func SelectedIDs(rows []models.VisibilityOverride) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Visible {
			out = append(out, row.MaterialID)
		}
	}
	return out
}
