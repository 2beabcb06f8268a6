package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/manabi-api/internal/models"
)

// StudentResponse is the API shape of a student.
type StudentResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Grade         string    `json:"grade"`
	Email         *string   `json:"email,omitempty"`
	ParentContact *string   `json:"parentContact,omitempty"`
	AuthUserID    *string   `json:"authUserId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StudentRequest is the payload for creating or replacing a student.
type StudentRequest struct {
	Name          string  `json:"name" validate:"required,max=120"`
	Grade         string  `json:"grade" validate:"required,oneof=1-2 3-4 5-6"`
	Email         *string `json:"email" validate:"omitempty,email"`
	ParentContact *string `json:"parentContact" validate:"omitempty,max=200"`
	AuthUserID    *string `json:"authUserId" validate:"omitempty,max=64"`
}

// NewStudentResponse maps a stored student to its API shape.
func NewStudentResponse(s models.Student) StudentResponse {
	return StudentResponse{
		ID:            s.ID,
		Name:          s.Name,
		Grade:         s.Grade,
		Email:         s.Email,
		ParentContact: s.ParentContact,
		AuthUserID:    s.AuthUserID,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// NewStudentResponses maps a slice of students, never returning nil.
func NewStudentResponses(items []models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(items))
	for _, s := range items {
		out = append(out, NewStudentResponse(s))
	}
	return out
}

// ToModel converts the request into a student row. Emails are normalised to lower case.
func (r StudentRequest) ToModel() models.Student {
	student := models.Student{
		Name:          strings.TrimSpace(r.Name),
		Grade:         r.Grade,
		ParentContact: r.ParentContact,
		AuthUserID:    r.AuthUserID,
	}
	if r.Email != nil {
		if email := NormalizeEmail(*r.Email); email != "" {
			student.Email = &email
		}
	}
	return student
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
