package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/manabi-api/internal/models"
)

// CompletionRepository persists material completion marks.
type CompletionRepository struct {
	db *sqlx.DB
}

// NewCompletionRepository constructs a CompletionRepository.
func NewCompletionRepository(db *sqlx.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Upsert marks a material complete, refreshing the timestamp when it already was.
func (r *CompletionRepository) Upsert(ctx context.Context, materialID, email string) error {
	const query = `INSERT INTO material_completions (material_id, student_email, completed_at) VALUES ($1, $2, $3)
        ON CONFLICT (material_id, student_email) DO UPDATE SET completed_at = EXCLUDED.completed_at`
	if _, err := r.db.ExecContext(ctx, query, materialID, email, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

// Delete clears a completion mark. Missing rows are not an error.
func (r *CompletionRepository) Delete(ctx context.Context, materialID, email string) error {
	const query = `DELETE FROM material_completions WHERE material_id = $1 AND student_email = $2`
	if _, err := r.db.ExecContext(ctx, query, materialID, email); err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

// ListByStudent returns completions for a student, newest first.
func (r *CompletionRepository) ListByStudent(ctx context.Context, email string) ([]models.MaterialCompletion, error) {
	const query = `SELECT material_id, student_email, completed_at FROM material_completions WHERE student_email = $1 ORDER BY completed_at DESC`
	var rows []models.MaterialCompletion
	if err := r.db.SelectContext(ctx, &rows, query, email); err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return rows, nil
}
