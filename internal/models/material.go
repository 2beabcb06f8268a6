package models

import (
	"time"

	"github.com/lib/pq"
)

// Allowed material grade bands.
const (
	GradeLower  = "1-2"
	GradeMiddle = "3-4"
	GradeUpper  = "5-6"
)

// Allowed material difficulty levels.
const (
	LevelEasy   = "easy"
	LevelNormal = "normal"
	LevelHard   = "hard"
)

// Material is a piece of learning content authored by a teacher.
type Material struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Grade        string         `db:"grade" json:"grade"`
	Level        string         `db:"level" json:"level"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
	HTMLContent  string         `db:"html_content" json:"html_content"`
	ThumbnailURL *string        `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	Description  *string        `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// MaterialFilter narrows material listings.
type MaterialFilter struct {
	Grade string
	Level string
	Tag   string
}
