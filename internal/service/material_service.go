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

type materialRepository interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error)
	FindByID(ctx context.Context, id string) (*models.Material, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id string) error
}

// MaterialService handles material use-cases.
type MaterialService struct {
	repo      materialRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(repo materialRepository, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, validator: validate, logger: logger}
}

// List returns materials, most recently updated first.
func (s *MaterialService) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	materials, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list materials")
	}
	return materials, nil
}

// Get returns a single material.
func (s *MaterialService) Get(ctx context.Context, id string) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Internal(err, "failed to load material")
	}
	return material, nil
}

// Create stores a new material and returns it with its id.
func (s *MaterialService) Create(ctx context.Context, req dto.MaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid material payload")
	}
	material := req.ToModel()
	if material.ID != "" {
		exists, err := s.repo.Exists(ctx, material.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check material id")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "material id already used")
		}
	}
	if err := s.repo.Create(ctx, &material); err != nil {
		return nil, appErrors.Internal(err, "failed to create material")
	}
	s.logger.Info("material created", zap.String("material_id", material.ID))
	return &material, nil
}

// Update replaces the content of an existing material.
func (s *MaterialService) Update(ctx context.Context, id string, req dto.MaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid material payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	material := req.ToModel()
	material.ID = existing.ID
	material.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &material); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Internal(err, "failed to update material")
	}
	return &material, nil
}

// Delete removes a material together with its overrides and completions.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Internal(err, "failed to delete material")
	}
	s.logger.Info("material deleted", zap.String("material_id", id))
	return nil
}
