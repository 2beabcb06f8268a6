package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/manabi-api/internal/models"
)

const materialColumns = "id, title, grade, level, tags, html_content, thumbnail_url, description, created_at, updated_at"

// MaterialRepository manages persistence for learning materials.
type MaterialRepository struct {
	db *sqlx.DB
}

// NewMaterialRepository constructs a MaterialRepository.
func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

// List returns materials matching the filter, most recently updated first.
func (r *MaterialRepository) List(ctx context.Context, filter models.MaterialFilter) ([]models.Material, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)))
	}
	if filter.Level != "" {
		args = append(args, filter.Level)
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM materials WHERE %s ORDER BY updated_at DESC, id", materialColumns, strings.Join(conditions, " AND "))
	var materials []models.Material
	if err := r.db.SelectContext(ctx, &materials, query, args...); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return materials, nil
}

// ListIDs returns the id of every material.
func (r *MaterialRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM materials ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list material ids: %w", err)
	}
	return ids, nil
}

// Count returns the number of materials.
func (r *MaterialRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM materials"); err != nil {
		return 0, fmt.Errorf("count materials: %w", err)
	}
	return total, nil
}

// FindByID fetches a material by id.
func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*models.Material, error) {
	query := fmt.Sprintf("SELECT %s FROM materials WHERE id = $1", materialColumns)
	var material models.Material
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, err
	}
	return &material, nil
}

// Exists reports whether a material with the id exists.
func (r *MaterialRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM materials WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check material: %w", err)
	}
	return true, nil
}

// Create inserts a material, generating an id when none is given.
func (r *MaterialRepository) Create(ctx context.Context, material *models.Material) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.Tags == nil {
		material.Tags = []string{}
	}
	now := time.Now().UTC()
	material.CreatedAt = now
	material.UpdatedAt = now
	const query = `INSERT INTO materials (id, title, grade, level, tags, html_content, thumbnail_url, description, created_at, updated_at)
        VALUES (:id, :title, :grade, :level, :tags, :html_content, :thumbnail_url, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

// Update replaces the mutable content of a material. It returns sql.ErrNoRows for unknown ids.
func (r *MaterialRepository) Update(ctx context.Context, material *models.Material) error {
	if material.Tags == nil {
		material.Tags = []string{}
	}
	material.UpdatedAt = time.Now().UTC()
	const query = `UPDATE materials SET title = :title, grade = :grade, level = :level, tags = :tags, html_content = :html_content,
        thumbnail_url = :thumbnail_url, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, material)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a material. Overrides and completions cascade.
func (r *MaterialRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM materials WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
