package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

type completionService interface {
	Complete(ctx context.Context, materialID string, req dto.CompletionRequest) error
	Uncomplete(ctx context.Context, materialID string, req dto.CompletionRequest) error
	CompletedIDs(ctx context.Context, email string) (*dto.CompletedIDsResponse, error)
	ForStudent(ctx context.Context, studentID string) (*dto.StudentCompletionsResponse, error)
}

// CompletionHandler exposes material completion endpoints.
type CompletionHandler struct {
	service completionService
}

// NewCompletionHandler constructs CompletionHandler.
func NewCompletionHandler(service completionService) *CompletionHandler {
	return &CompletionHandler{service: service}
}

// Complete godoc
// @Summary Mark a material complete
// @Tags Completions
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body dto.CompletionRequest true "Student email"
// @Success 200 {object} response.Envelope{data=response.OK}
// @Router /materials/{id}/complete [post]
func (h *CompletionHandler) Complete(c *gin.Context) {
	h.apply(c, h.service.Complete)
}

// Uncomplete godoc
// @Summary Clear a completion mark
// @Tags Completions
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body dto.CompletionRequest true "Student email"
// @Success 200 {object} response.Envelope{data=response.OK}
// @Router /materials/{id}/complete [delete]
func (h *CompletionHandler) Uncomplete(c *gin.Context) {
	h.apply(c, h.service.Uncomplete)
}

// CompletedIDs godoc
// @Summary List completed material ids for an email
// @Tags Completions
// @Produce json
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope{data=dto.CompletedIDsResponse}
// @Router /students/completions [get]
func (h *CompletionHandler) CompletedIDs(c *gin.Context) {
	email := queryEmail(c)
	if email == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email is required"))
		return
	}
	if err := requireSelfOrTeacher(c, email); err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.service.CompletedIDs(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// ForStudent godoc
// @Summary List a student's completions
// @Tags Completions
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=dto.StudentCompletionsResponse}
// @Router /students/{id}/completions [get]
func (h *CompletionHandler) ForStudent(c *gin.Context) {
	resp, err := h.service.ForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

func (h *CompletionHandler) apply(c *gin.Context, op func(context.Context, string, dto.CompletionRequest) error) {
	var req dto.CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := requireSelfOrTeacher(c, req.Email); err != nil {
		response.Error(c, err)
		return
	}
	if err := op(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Acknowledge(c)
}
