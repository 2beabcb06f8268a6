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

type visibilityRepository interface {
	GetPref(ctx context.Context, email string) (*models.StudentMaterialPref, error)
	UpsertPref(ctx context.Context, email string, mode models.VisibilityMode) error
	ListByStudent(ctx context.Context, email string) ([]models.VisibilityOverride, error)
	ListByMaterial(ctx context.Context, materialID string) ([]models.VisibilityOverride, error)
	UpsertOverrides(ctx context.Context, rows []models.VisibilityOverride) error
	DeleteByStudent(ctx context.Context, email string) error
}

type visibilityMaterialReader interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error)
	ListIDs(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// VisibilityService reads and reconciles per-student material visibility.
type VisibilityService struct {
	repo      visibilityRepository
	materials visibilityMaterialReader
	students  studentFinder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVisibilityService constructs the visibility service.
func NewVisibilityService(repo visibilityRepository, materials visibilityMaterialReader, students studentFinder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *VisibilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityService{repo: repo, materials: materials, students: students, metrics: metrics, validator: validate, logger: logger}
}

// Mode returns the stored mode for the email, or all when none is stored.
func (s *VisibilityService) Mode(ctx context.Context, email string) (models.VisibilityMode, error) {
	pref, err := s.repo.GetPref(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VisibilityModeAll, nil
		}
		return "", appErrors.Internal(err, "failed to load visibility mode")
	}
	if pref.Mode == "" {
		return models.VisibilityModeAll, nil
	}
	return pref.Mode, nil
}

// GetStudentVisibility returns the mode and explicitly selected materials of a student.
func (s *VisibilityService) GetStudentVisibility(ctx context.Context, studentID string) (*dto.StudentVisibilityResponse, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	email := dto.NormalizeEmail(student.EmailValue())
	if email == "" {
		return &dto.StudentVisibilityResponse{Mode: string(models.VisibilityModeAll), SelectedIDs: []string{}}, nil
	}

	mode, err := s.Mode(ctx, email)
	if err != nil {
		return nil, err
	}
	resp := &dto.StudentVisibilityResponse{Email: email, Mode: string(mode), SelectedIDs: []string{}}
	// Rows written by the per-material editor only count as a selection in custom mode.
	if mode != models.VisibilityModeCustom {
		return resp, nil
	}
	rows, err := s.repo.ListByStudent(ctx, email)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load visibility overrides")
	}
	resp.SelectedIDs = dto.SelectedIDs(rows)
	return resp, nil
}

// UpdateStudentVisibility applies a mode and selection to the student resolved by id.
func (s *VisibilityService) UpdateStudentVisibility(ctx context.Context, studentID string, req dto.UpdateStudentVisibilityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid visibility payload")
	}
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return err
	}
	email := dto.NormalizeEmail(student.EmailValue())
	if email == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student has no email")
	}
	mode := models.VisibilityMode(req.Mode)
	if mode == "" {
		mode = models.VisibilityModeCustom
	}
	return s.SetVisibility(ctx, email, mode, req.SelectedIDs)
}

// SetVisibility stores the mode for the email and rewrites its override rows.
//
// custom writes one row per existing material, visible only when selected, so
// every material has an explicit row afterwards. all drops the rows. none writes
// visible=false for every material.
//
// The mode upsert and the override rewrite are separate statements with no
// surrounding transaction. A failure between them leaves the new mode with the
// previous overrides; saving again repairs it.
func (s *VisibilityService) SetVisibility(ctx context.Context, email string, mode models.VisibilityMode, selectedIDs []string) error {
	email = dto.NormalizeEmail(email)
	if email == "" {
		return appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	if !mode.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "mode must be one of all, none, custom")
	}

	if err := s.repo.UpsertPref(ctx, email, mode); err != nil {
		return appErrors.Internal(err, "failed to save visibility mode")
	}

	switch mode {
	case models.VisibilityModeAll:
		if err := s.repo.DeleteByStudent(ctx, email); err != nil {
			return appErrors.Internal(err, "failed to clear visibility overrides")
		}
	case models.VisibilityModeNone, models.VisibilityModeCustom:
		ids, err := s.materials.ListIDs(ctx)
		if err != nil {
			return appErrors.Internal(err, "failed to load materials")
		}
		selected := make(map[string]struct{}, len(selectedIDs))
		if mode == models.VisibilityModeCustom {
			for _, id := range selectedIDs {
				selected[id] = struct{}{}
			}
		}
		rows := make([]models.VisibilityOverride, 0, len(ids))
		for _, id := range ids {
			_, visible := selected[id]
			rows = append(rows, models.VisibilityOverride{MaterialID: id, StudentEmail: email, Visible: visible})
		}
		if err := s.repo.UpsertOverrides(ctx, rows); err != nil {
			return appErrors.Internal(err, "failed to save visibility overrides")
		}
	}

	s.metrics.IncVisibilitySave(string(mode))
	s.logger.Info("visibility saved", zap.String("student_email", email), zap.String("mode", string(mode)), zap.Int("selected", len(selectedIDs)))
	return nil
}

// GetMaterialVisibility lists the stored per-student flags for a material.
func (s *VisibilityService) GetMaterialVisibility(ctx context.Context, materialID string) (*dto.MaterialVisibilityResponse, error) {
	if err := s.ensureMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByMaterial(ctx, materialID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load material visibility")
	}
	return &dto.MaterialVisibilityResponse{Entries: dto.NewVisibilityEntries(rows)}, nil
}

// UpdateMaterialVisibility upserts one row per submitted student for a single material.
// Student modes are left untouched, so the rows only matter for students in custom mode.
func (s *VisibilityService) UpdateMaterialVisibility(ctx context.Context, materialID string, req dto.UpdateMaterialVisibilityRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid visibility payload")
	}
	if err := s.ensureMaterial(ctx, materialID); err != nil {
		return err
	}

	index := make(map[string]int, len(req.Entries))
	rows := make([]models.VisibilityOverride, 0, len(req.Entries))
	for _, entry := range req.Entries {
		email := dto.NormalizeEmail(entry.StudentEmail)
		if i, seen := index[email]; seen {
			rows[i].Visible = entry.Visible
			continue
		}
		index[email] = len(rows)
		rows = append(rows, models.VisibilityOverride{MaterialID: materialID, StudentEmail: email, Visible: entry.Visible})
	}
	if err := s.repo.UpsertOverrides(ctx, rows); err != nil {
		return appErrors.Internal(err, "failed to save material visibility")
	}
	return nil
}

// ResolveForEmail returns the materials visible to the student with the email.
func (s *VisibilityService) ResolveForEmail(ctx context.Context, email string) ([]models.Material, error) {
	email = dto.NormalizeEmail(email)
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	mode, err := s.Mode(ctx, email)
	if err != nil {
		return nil, err
	}
	materials, err := s.materials.List(ctx, models.MaterialFilter{})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load materials")
	}
	var overrides []models.VisibilityOverride
	if mode == models.VisibilityModeCustom {
		overrides, err = s.repo.ListByStudent(ctx, email)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load visibility overrides")
		}
	}
	return ResolveVisibleMaterials(mode, materials, overrides), nil
}

func (s *VisibilityService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	return student, nil
}

func (s *VisibilityService) ensureMaterial(ctx context.Context, id string) error {
	exists, err := s.materials.Exists(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to load material")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "material not found")
	}
	return nil
}
