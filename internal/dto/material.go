package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/manabi-api/internal/models"
)

// MaterialResponse is the API shape of a material.
type MaterialResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Grade        string    `json:"grade"`
	Level        string    `json:"level"`
	Tags         []string  `json:"tags"`
	HTMLContent  string    `json:"htmlContent"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	Description  *string   `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MaterialRequest is the payload for creating or replacing a material.
type MaterialRequest struct {
	ID           string   `json:"id" validate:"omitempty,max=64"`
	Title        string   `json:"title" validate:"required,max=200"`
	Grade        string   `json:"grade" validate:"required,oneof=1-2 3-4 5-6"`
	Level        string   `json:"level" validate:"required,oneof=easy normal hard"`
	Tags         []string `json:"tags" validate:"omitempty,max=20,dive,required,max=40"`
	HTMLContent  string   `json:"htmlContent"`
	ThumbnailURL *string  `json:"thumbnailUrl" validate:"omitempty,url"`
	Description  *string  `json:"description" validate:"omitempty,max=1000"`
}

// CreatedResponse carries the identifier of a newly created resource.
type CreatedResponse struct {
	ID string `json:"id"`
}

// NewMaterialResponse maps a stored material to its API shape.
func NewMaterialResponse(m models.Material) MaterialResponse {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	return MaterialResponse{
		ID:           m.ID,
		Title:        m.Title,
		Grade:        m.Grade,
		Level:        m.Level,
		Tags:         tags,
		HTMLContent:  m.HTMLContent,
		ThumbnailURL: m.ThumbnailURL,
		Description:  m.Description,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// NewMaterialResponses maps a slice of materials, never returning nil.
func NewMaterialResponses(items []models.Material) []MaterialResponse {
	out := make([]MaterialResponse, 0, len(items))
	for _, m := range items {
		out = append(out, NewMaterialResponse(m))
	}
	return out
}

// ToModel converts the request into a material row.
func (r MaterialRequest) ToModel() models.Material {
	tags := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return models.Material{
		ID:           strings.TrimSpace(r.ID),
		Title:        strings.TrimSpace(r.Title),
		Grade:        r.Grade,
		Level:        r.Level,
		Tags:         tags,
		HTMLContent:  r.HTMLContent,
		ThumbnailURL: r.ThumbnailURL,
		Description:  r.Description,
	}
}
