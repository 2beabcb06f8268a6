package models

import "time"

// VisibilityMode is a student's default material visibility policy.
type VisibilityMode string

const (
	VisibilityModeAll    VisibilityMode = "all"
	VisibilityModeNone   VisibilityMode = "none"
	VisibilityModeCustom VisibilityMode = "custom"
)

// Valid reports whether the mode is one of the known values.
func (m VisibilityMode) Valid() bool {
	switch m {
	case VisibilityModeAll, VisibilityModeNone, VisibilityModeCustom:
		return true
	}
	return false
}

// StudentMaterialPref stores the visibility mode for one student email.
type StudentMaterialPref struct {
	StudentEmail string         `db:"student_email" json:"student_email"`
	Mode         VisibilityMode `db:"mode" json:"mode"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// VisibilityOverride is the explicit flag for one (material, student) pair.
type VisibilityOverride struct {
	MaterialID   string    `db:"material_id" json:"material_id"`
	StudentEmail string    `db:"student_email" json:"student_email"`
	Visible      bool      `db:"visible" json:"visible"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
