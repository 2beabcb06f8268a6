package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

type visibilityService interface {
	GetStudentVisibility(ctx context.Context, studentID string) (*dto.StudentVisibilityResponse, error)
	UpdateStudentVisibility(ctx context.Context, studentID string, req dto.UpdateStudentVisibilityRequest) error
	GetMaterialVisibility(ctx context.Context, materialID string) (*dto.MaterialVisibilityResponse, error)
	UpdateMaterialVisibility(ctx context.Context, materialID string, req dto.UpdateMaterialVisibilityRequest) error
	ResolveForEmail(ctx context.Context, email string) ([]models.Material, error)
}

// VisibilityHandler exposes the per-student and per-material visibility editors.
type VisibilityHandler struct {
	service visibilityService
}

// NewVisibilityHandler constructs VisibilityHandler.
func NewVisibilityHandler(service visibilityService) *VisibilityHandler {
	return &VisibilityHandler{service: service}
}

// GetStudent godoc
// @Summary Get a student's material visibility
// @Tags Visibility
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=dto.StudentVisibilityResponse}
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/materials [get]
func (h *VisibilityHandler) GetStudent(c *gin.Context) {
	resp, err := h.service.GetStudentVisibility(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// UpdateStudent godoc
// @Summary Set a student's visibility mode and selection
// @Tags Visibility
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.UpdateStudentVisibilityRequest true "Mode and selected material ids"
// @Success 200 {object} response.Envelope{data=response.OK}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/materials [put]
func (h *VisibilityHandler) UpdateStudent(c *gin.Context) {
	var req dto.UpdateStudentVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.UpdateStudentVisibility(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Acknowledge(c)
}

// GetMaterial godoc
// @Summary List visibility rows for a material
// @Tags Visibility
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope{data=dto.MaterialVisibilityResponse}
// @Failure 404 {object} response.Envelope
// @Router /materials/{id}/visibility [get]
func (h *VisibilityHandler) GetMaterial(c *gin.Context) {
	resp, err := h.service.GetMaterialVisibility(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// UpdateMaterial godoc
// @Summary Upsert visibility rows for a material
// @Description Writes rows as given without changing any student's mode.
// @Tags Visibility
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body dto.UpdateMaterialVisibilityRequest true "Visibility entries"
// @Success 200 {object} response.Envelope{data=response.OK}
// @Router /materials/{id}/visibility [put]
func (h *VisibilityHandler) UpdateMaterial(c *gin.Context) {
	var req dto.UpdateMaterialVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := h.service.UpdateMaterialVisibility(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Acknowledge(c)
}

// VisibleMaterials godoc
// @Summary Materials visible to a student
// @Tags Visibility
// @Produce json
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/materials [get]
func (h *VisibilityHandler) VisibleMaterials(c *gin.Context) {
	email := queryEmail(c)
	if email == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email is required"))
		return
	}
	if err := requireSelfOrTeacher(c, email); err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.ResolveForEmail(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewMaterialResponses(items))
}
