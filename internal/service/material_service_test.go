package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type mockMaterialRepo struct {
	materials map[string]models.Material
	deleted   []string
	err       error
}

func (m *mockMaterialRepo) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Material, 0, len(m.materials))
	for _, material := range m.materials {
		out = append(out, material)
	}
	return out, nil
}

func (m *mockMaterialRepo) FindByID(ctx context.Context, id string) (*models.Material, error) {
	if material, ok := m.materials[id]; ok {
		return &material, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMaterialRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.materials[id]
	return ok, nil
}

func (m *mockMaterialRepo) Create(ctx context.Context, material *models.Material) error {
	if m.materials == nil {
		m.materials = map[string]models.Material{}
	}
	if material.ID == "" {
		material.ID = "generated"
	}
	m.materials[material.ID] = *material
	return nil
}

func (m *mockMaterialRepo) Update(ctx context.Context, material *models.Material) error {
	if _, ok := m.materials[material.ID]; !ok {
		return sql.ErrNoRows
	}
	m.materials[material.ID] = *material
	return nil
}

func (m *mockMaterialRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.materials[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.materials, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func validMaterialRequest() dto.MaterialRequest {
	return dto.MaterialRequest{Title: "Fractions", Grade: "3-4", Level: "easy", Tags: []string{"math"}, HTMLContent: "<p>1/2</p>"}
}

func TestMaterialServiceCreate(t *testing.T) {
	repo := &mockMaterialRepo{}
	svc := NewMaterialService(repo, nil, zap.NewNop())

	material, err := svc.Create(context.Background(), validMaterialRequest())
	require.NoError(t, err)
	assert.Equal(t, "generated", material.ID)
	assert.Contains(t, repo.materials, "generated")
}

func TestMaterialServiceCreateValidation(t *testing.T) {
	svc := NewMaterialService(&mockMaterialRepo{}, nil, nil)

	req := validMaterialRequest()
	req.Grade = "7-8"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = validMaterialRequest()
	req.Level = "expert"
	_, err = svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestMaterialServiceCreateConflict(t *testing.T) {
	repo := &mockMaterialRepo{materials: map[string]models.Material{"m1": {ID: "m1"}}}
	svc := NewMaterialService(repo, nil, nil)

	req := validMaterialRequest()
	req.ID = "m1"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestMaterialServiceUpdateKeepsCreatedAt(t *testing.T) {
	created := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockMaterialRepo{materials: map[string]models.Material{"m1": {ID: "m1", Title: "Old", CreatedAt: created}}}
	svc := NewMaterialService(repo, nil, nil)

	material, err := svc.Update(context.Background(), "m1", validMaterialRequest())
	require.NoError(t, err)
	assert.Equal(t, "Fractions", material.Title)
	assert.Equal(t, created, material.CreatedAt)
}

func TestMaterialServiceNotFound(t *testing.T) {
	svc := NewMaterialService(&mockMaterialRepo{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Update(ctx, "missing", validMaterialRequest())
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	assert.True(t, errors.Is(svc.Delete(ctx, "missing"), appErrors.ErrNotFound))
}

func TestMaterialServiceListWrapsErrors(t *testing.T) {
	svc := NewMaterialService(&mockMaterialRepo{err: errors.New("db down")}, nil, nil)
	_, err := svc.List(context.Background(), models.MaterialFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
