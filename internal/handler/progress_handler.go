package handler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

type progressService interface {
	ForStudent(ctx context.Context, studentID string) (*dto.ProgressResponse, error)
}

type exportService interface {
	ExportProgress(ctx context.Context, studentID, format string) (*dto.ExportResponse, error)
	Open(token string) (*os.File, string, error)
}

// ProgressHandler exposes progress reports and their exports.
type ProgressHandler struct {
	progress progressService
	exports  exportService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress progressService, exports exportService) *ProgressHandler {
	return &ProgressHandler{progress: progress, exports: exports}
}

// Progress godoc
// @Summary Student learning progress
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope{data=dto.ProgressResponse}
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressHandler) Progress(c *gin.Context) {
	resp, err := h.progress.ForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Export godoc
// @Summary Export student progress
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope{data=dto.ExportResponse}
// @Router /students/{id}/progress/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	resp, err := h.exports.ExportProgress(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", dto.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Download godoc
// @Summary Download an exported report
// @Tags Progress
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ProgressHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
