package models

import "github.com/golang-jwt/jwt/v5"

// UserRole distinguishes teachers from students.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// JWTClaims is the identity provider token payload plus the role derived locally.
type JWTClaims struct {
	Email string   `json:"email"`
	Role  UserRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsTeacher reports whether the principal has the teacher role.
func (c *JWTClaims) IsTeacher() bool {
	return c != nil && c.Role == RoleTeacher
}
