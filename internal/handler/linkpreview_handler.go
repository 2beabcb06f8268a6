package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/middleware"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

const maxBatchTexts = 200

type linkPreviewService interface {
	Preview(ctx context.Context, rawURL string) (*dto.LinkPreview, error)
	Batch(ctx context.Context, texts []string) (map[string]dto.LinkPreview, error)
	Purge(ctx context.Context) error
}

// LinkPreviewHandler exposes chat link preview endpoints.
type LinkPreviewHandler struct {
	service linkPreviewService
}

// NewLinkPreviewHandler constructs LinkPreviewHandler.
func NewLinkPreviewHandler(service linkPreviewService) *LinkPreviewHandler {
	return &LinkPreviewHandler{service: service}
}

// Preview godoc
// @Summary Preview a single URL
// @Description Blocked upstream responses still return 200 with blocked=true.
// @Tags LinkPreview
// @Produce json
// @Param url query string true "URL to preview"
// @Success 200 {object} response.Envelope{data=dto.LinkPreview}
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /linkpreview [get]
func (h *LinkPreviewHandler) Preview(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "url is required"))
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview)
}

// Batch godoc
// @Summary Preview every URL found in message texts
// @Description URLs that cannot be resolved come back as placeholder cards.
// @Tags LinkPreview
// @Accept json
// @Produce json
// @Param payload body dto.BatchPreviewRequest true "Message texts"
// @Success 200 {object} response.Envelope{data=dto.BatchPreviewResponse}
// @Router /linkpreview/batch [post]
func (h *LinkPreviewHandler) Batch(c *gin.Context) {
	var req dto.BatchPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if len(req.Texts) == 0 || len(req.Texts) > maxBatchTexts {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "texts must hold between 1 and 200 entries"))
		return
	}
	previews, err := h.service.Batch(c.Request.Context(), req.Texts)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(previews))
	response.JSON(c, http.StatusOK, dto.BatchPreviewResponse{Previews: previews}, middleware.ExtractMeta(c))
}

// Purge godoc
// @Summary Drop cached previews
// @Tags LinkPreview
// @Produce json
// @Success 200 {object} response.Envelope{data=response.OK}
// @Router /linkpreview/cache [delete]
func (h *LinkPreviewHandler) Purge(c *gin.Context) {
	if err := h.service.Purge(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Acknowledge(c)
}
