package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/middleware"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireSelfOrTeacher allows teachers to act on any email and students only on their own.
func requireSelfOrTeacher(c *gin.Context, email string) error {
	claims := claimsFromContext(c)
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.IsTeacher() {
		return nil
	}
	if dto.NormalizeEmail(email) != claims.Email {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records")
	}
	return nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}

func queryEmail(c *gin.Context) string {
	return dto.NormalizeEmail(strings.TrimSpace(c.Query("email")))
}
