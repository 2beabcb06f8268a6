package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

type materialService interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error)
	Get(ctx context.Context, id string) (*models.Material, error)
	Create(ctx context.Context, req dto.MaterialRequest) (*models.Material, error)
	Update(ctx context.Context, id string, req dto.MaterialRequest) (*models.Material, error)
	Delete(ctx context.Context, id string) error
}

type visibleMaterialResolver interface {
	ResolveForEmail(ctx context.Context, email string) ([]models.Material, error)
}

// MaterialHandler exposes learning material endpoints.
type MaterialHandler struct {
	materials  materialService
	visibility visibleMaterialResolver
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials materialService, visibility visibleMaterialResolver) *MaterialHandler {
	return &MaterialHandler{materials: materials, visibility: visibility}
}

// List godoc
// @Summary List materials
// @Tags Materials
// @Produce json
// @Param grade query string false "Grade band (1-2, 3-4, 5-6)"
// @Param level query string false "Level (easy, normal, hard)"
// @Param tag query string false "Tag"
// @Success 200 {object} response.Envelope
// @Router /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	filter := models.MaterialFilter{
		Grade: strings.TrimSpace(c.Query("grade")),
		Level: strings.TrimSpace(c.Query("level")),
		Tag:   strings.TrimSpace(c.Query("tag")),
	}
	items, err := h.materials.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewMaterialResponses(items), map[string]interface{}{"count": len(items)})
}

// Get godoc
// @Summary Get material
// @Description Students only see materials visible to them.
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if claims := claimsFromContext(c); claims != nil && !claims.IsTeacher() && h.visibility != nil {
		visible, err := h.visibility.ResolveForEmail(c.Request.Context(), claims.Email)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !containsMaterial(visible, id) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "material not found"))
			return
		}
	}

	material, err := h.materials.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewMaterialResponse(*material))
}

// Create godoc
// @Summary Create material
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body dto.MaterialRequest true "Material payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req dto.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	material, err := h.materials.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CreatedResponse{ID: material.ID})
}

// Update godoc
// @Summary Update material
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body dto.MaterialRequest true "Material payload"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	var req dto.MaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	material, err := h.materials.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewMaterialResponse(*material))
}

// Delete godoc
// @Summary Delete material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func containsMaterial(items []models.Material, id string) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
