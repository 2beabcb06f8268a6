package models

import "time"

// Student represents a learner. Visibility and progress are keyed by Email, not ID.
type Student struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Grade         string    `db:"grade" json:"grade"`
	Email         *string   `db:"email" json:"email,omitempty"`
	ParentContact *string   `db:"parent_contact" json:"parent_contact,omitempty"`
	AuthUserID    *string   `db:"auth_user_id" json:"auth_user_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// EmailValue returns the student's email or an empty string.
func (s Student) EmailValue() string {
	if s.Email == nil {
		return ""
	}
	return *s.Email
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Email string
	Grade string
}
