package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

// MeResponse describes the verified caller.
type MeResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthHandler exposes the caller's identity as seen by the API.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Current user
// @Description Returns the email from the identity provider token and the role derived from the teacher roster.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope{data=MeResponse}
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, MeResponse{Email: claims.Email, Role: string(claims.Role)})
}
