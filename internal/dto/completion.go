package dto

import (
	"time"

	"github.com/noah-isme/manabi-api/internal/models"
)

// CompletionRequest identifies the student completing a material.
type CompletionRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CompletedIDsResponse lists completed material ids for one student.
type CompletedIDsResponse struct {
	CompletedIDs []string `json:"completedIds"`
}

// CompletionEntry is one completion row.
type CompletionEntry struct {
	MaterialID  string    `json:"material_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// StudentCompletionsResponse lists completions for a student resolved by id.
type StudentCompletionsResponse struct {
	Email       string            `json:"email"`
	Completions []CompletionEntry `json:"completions"`
}

// NewCompletionEntries maps completion rows, never returning nil.
func NewCompletionEntries(rows []models.MaterialCompletion) []CompletionEntry {
	out := make([]CompletionEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, CompletionEntry{MaterialID: row.MaterialID, CompletedAt: row.CompletedAt})
	}
	return out
}

// CompletedIDs extracts material ids from completion rows.
func CompletedIDs(rows []models.MaterialCompletion) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.MaterialID)
	}
	return out
}
