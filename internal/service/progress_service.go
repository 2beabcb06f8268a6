package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type materialCounter interface {
	Count(ctx context.Context) (int, error)
}

type completionLister interface {
	ListByStudent(ctx context.Context, email string) ([]models.MaterialCompletion, error)
}

type attemptLister interface {
	ListAttemptsByUser(ctx context.Context, email string) ([]models.AttemptSummary, error)
}

// ProgressService aggregates a student's completions and quiz attempts.
type ProgressService struct {
	students    studentFinder
	materials   materialCounter
	completions completionLister
	attempts    attemptLister
	logger      *zap.Logger
}

// NewProgressService constructs the progress aggregator.
func NewProgressService(students studentFinder, materials materialCounter, completions completionLister, attempts attemptLister, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{students: students, materials: materials, completions: completions, attempts: attempts, logger: logger}
}

// ForStudent builds the progress report. Students without an email have no
// recorded activity and get an empty report.
func (s *ProgressService) ForStudent(ctx context.Context, studentID string) (*dto.ProgressResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}

	total, err := s.materials.Count(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count materials")
	}

	resp := &dto.ProgressResponse{
		StudentID:      student.ID,
		Name:           student.Name,
		Email:          student.EmailValue(),
		TotalMaterials: total,
		Completions:    []dto.CompletionEntry{},
		Attempts:       []dto.AttemptEntry{},
	}
	if resp.Email == "" {
		return resp, nil
	}

	completions, err := s.completions.ListByStudent(ctx, resp.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list completions")
	}
	resp.Completions = dto.NewCompletionEntries(completions)
	resp.CompletedCount = len(completions)
	if total > 0 {
		resp.CompletionRate = math.Round(float64(resp.CompletedCount)/float64(total)*1000) / 10
	}

	attempts, err := s.attempts.ListAttemptsByUser(ctx, resp.Email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list attempts")
	}
	var sum, scored int
	for _, a := range attempts {
		entry := dto.AttemptEntry{ID: a.ID, QuizID: a.QuizID, QuizTitle: a.QuizTitle, SubmittedAt: a.SubmittedAt}
		if a.ScoreAuto.Valid {
			score := int(a.ScoreAuto.Int64)
			entry.ScoreAuto = &score
			sum += score
			scored++
		}
		resp.Attempts = append(resp.Attempts, entry)
	}
	if scored > 0 {
		avg := math.Round(float64(sum)/float64(scored)*10) / 10
		resp.AverageScore = &avg
	}
	return resp, nil
}
