package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/dto"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/export"
	"github.com/noah-isme/manabi-api/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type progressReader interface {
	ForStudent(ctx context.Context, studentID string) (*dto.ProgressResponse, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService renders progress reports and hands them out through signed links.
type ExportService struct {
	progress progressReader
	storage  fileStorage
	csv      datasetRenderer
	pdf      datasetRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers get the default exporters.
func NewExportService(progress progressReader, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{progress: progress, storage: files, csv: csv, pdf: pdf, signer: signer, logger: logger, cfg: cfg, now: time.Now}
}

// ExportProgress renders the student's progress in the requested format and returns a download link.
func (s *ExportService) ExportProgress(ctx context.Context, studentID, format string) (*dto.ExportResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	var renderer datasetRenderer
	switch format {
	case dto.ExportFormatCSV:
		renderer = s.csv
	case dto.ExportFormatPDF:
		renderer = s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	progress, err := s.progress.ForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(progressDataset(progress))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}

	name := fmt.Sprintf("progress_%s_%s.%s", sanitizeFilename(progress.StudentID), s.now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store report")
	}

	token, expiresAt, err := s.signer.Generate(progress.StudentID, relPath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}

	s.logger.Info("progress report exported", zap.String("student_id", progress.StudentID), zap.String("format", format), zap.String("file", relPath))
	return &dto.ExportResponse{
		Format:    format,
		URL:       fmt.Sprintf("%s/exports/download?token=%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and returns the stored file with its name.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, name, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, "", appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.storage.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, "", appErrors.Internal(err, "failed to open report")
	}
	return file, name, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func progressDataset(p *dto.ProgressResponse) export.Dataset {
	headers := []string{"Type", "Item", "Date", "Score"}
	rows := make([]map[string]string, 0, len(p.Completions)+len(p.Attempts))
	for _, c := range p.Completions {
		rows = append(rows, map[string]string{
			"Type": "Completion",
			"Item": c.MaterialID,
			"Date": formatReportTime(c.CompletedAt),
		})
	}
	for _, a := range p.Attempts {
		score := "-"
		if a.ScoreAuto != nil {
			score = fmt.Sprintf("%d", *a.ScoreAuto)
		}
		rows = append(rows, map[string]string{
			"Type":  "Quiz",
			"Item":  a.QuizTitle,
			"Date":  formatReportTime(a.SubmittedAt),
			"Score": score,
		})
	}

	notes := []string{
		fmt.Sprintf("Student: %s (%s)", p.Name, p.Email),
		fmt.Sprintf("Completed %d of %d materials (%.1f%%)", p.CompletedCount, p.TotalMaterials, p.CompletionRate),
	}
	if p.AverageScore != nil {
		notes = append(notes, fmt.Sprintf("Average quiz score: %.1f", *p.AverageScore))
	}
	return export.Dataset{Title: "Learning Progress", Notes: notes, Headers: headers, Rows: rows}
}

func formatReportTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
