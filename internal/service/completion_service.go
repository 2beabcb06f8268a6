package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type completionRepository interface {
	Upsert(ctx context.Context, materialID, email string) error
	Delete(ctx context.Context, materialID, email string) error
	ListByStudent(ctx context.Context, email string) ([]models.MaterialCompletion, error)
}

type materialChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CompletionService records which materials students have finished.
type CompletionService struct {
	repo      completionRepository
	materials materialChecker
	students  studentFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompletionService constructs the completion service.
func NewCompletionService(repo completionRepository, materials materialChecker, students studentFinder, validate *validator.Validate, logger *zap.Logger) *CompletionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{repo: repo, materials: materials, students: students, validator: validate, logger: logger}
}

// Complete marks a material complete for the student. Repeating it is harmless.
func (s *CompletionService) Complete(ctx context.Context, materialID string, req dto.CompletionRequest) error {
	email, err := s.prepare(ctx, materialID, req)
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, materialID, email); err != nil {
		return appErrors.Internal(err, "failed to save completion")
	}
	return nil
}

// Uncomplete clears the completion mark.
func (s *CompletionService) Uncomplete(ctx context.Context, materialID string, req dto.CompletionRequest) error {
	email, err := s.prepare(ctx, materialID, req)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, materialID, email); err != nil {
		return appErrors.Internal(err, "failed to remove completion")
	}
	return nil
}

// CompletedIDs lists material ids the student finished.
func (s *CompletionService) CompletedIDs(ctx context.Context, email string) (*dto.CompletedIDsResponse, error) {
	email = dto.NormalizeEmail(email)
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	rows, err := s.repo.ListByStudent(ctx, email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list completions")
	}
	return &dto.CompletedIDsResponse{CompletedIDs: dto.CompletedIDs(rows)}, nil
}

// ForStudent lists completions of the student resolved by id.
func (s *CompletionService) ForStudent(ctx context.Context, studentID string) (*dto.StudentCompletionsResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	email := dto.NormalizeEmail(student.EmailValue())
	if email == "" {
		return &dto.StudentCompletionsResponse{Completions: []dto.CompletionEntry{}}, nil
	}
	rows, err := s.repo.ListByStudent(ctx, email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list completions")
	}
	return &dto.StudentCompletionsResponse{Email: email, Completions: dto.NewCompletionEntries(rows)}, nil
}

func (s *CompletionService) prepare(ctx context.Context, materialID string, req dto.CompletionRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Validation(err, "email is required")
	}
	exists, err := s.materials.Exists(ctx, materialID)
	if err != nil {
		return "", appErrors.Internal(err, "failed to load material")
	}
	if !exists {
		return "", appErrors.Clone(appErrors.ErrNotFound, "material not found")
	}
	return dto.NormalizeEmail(req.Email), nil
}
