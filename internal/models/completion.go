package models

import "time"

// MaterialCompletion records that a student finished a material.
type MaterialCompletion struct {
	MaterialID   string    `db:"material_id" json:"material_id"`
	StudentEmail string    `db:"student_email" json:"student_email"`
	CompletedAt  time.Time `db:"completed_at" json:"completed_at"`
}
