package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/manabi-api/internal/models"
)

// overrideBatchSize keeps a bulk upsert well under the Postgres bind parameter limit.
const overrideBatchSize = 1000

// VisibilityRepository stores per-student modes and per-(material, student) overrides.
type VisibilityRepository struct {
	db *sqlx.DB
}

// NewVisibilityRepository constructs a VisibilityRepository.
func NewVisibilityRepository(db *sqlx.DB) *VisibilityRepository {
	return &VisibilityRepository{db: db}
}

// GetPref returns the stored mode for a student. It returns sql.ErrNoRows when none is stored.
func (r *VisibilityRepository) GetPref(ctx context.Context, email string) (*models.StudentMaterialPref, error) {
	const query = `SELECT student_email, mode, updated_at FROM student_material_prefs WHERE student_email = $1`
	var pref models.StudentMaterialPref
	if err := r.db.GetContext(ctx, &pref, query, email); err != nil {
		return nil, err
	}
	return &pref, nil
}

// UpsertPref stores the mode for a student.
func (r *VisibilityRepository) UpsertPref(ctx context.Context, email string, mode models.VisibilityMode) error {
	const query = `INSERT INTO student_material_prefs (student_email, mode, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (student_email) DO UPDATE SET mode = EXCLUDED.mode, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, email, string(mode), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert material pref: %w", err)
	}
	return nil
}

// ListByStudent returns all override rows for a student.
func (r *VisibilityRepository) ListByStudent(ctx context.Context, email string) ([]models.VisibilityOverride, error) {
	const query = `SELECT material_id, student_email, visible, updated_at FROM material_visibility WHERE student_email = $1 ORDER BY material_id`
	var rows []models.VisibilityOverride
	if err := r.db.SelectContext(ctx, &rows, query, email); err != nil {
		return nil, fmt.Errorf("list overrides by student: %w", err)
	}
	return rows, nil
}

// ListByMaterial returns all override rows for a material.
func (r *VisibilityRepository) ListByMaterial(ctx context.Context, materialID string) ([]models.VisibilityOverride, error) {
	const query = `SELECT material_id, student_email, visible, updated_at FROM material_visibility WHERE material_id = $1 ORDER BY student_email`
	var rows []models.VisibilityOverride
	if err := r.db.SelectContext(ctx, &rows, query, materialID); err != nil {
		return nil, fmt.Errorf("list overrides by material: %w", err)
	}
	return rows, nil
}

// UpsertOverrides writes the given rows keyed by (material_id, student_email).
// Rows must not repeat a key within one call.
func (r *VisibilityRepository) UpsertOverrides(ctx context.Context, rows []models.VisibilityOverride) error {
	now := time.Now().UTC()
	for start := 0; start < len(rows); start += overrideBatchSize {
		end := start + overrideBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args := buildOverrideUpsert(rows[start:end], now)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert overrides: %w", err)
		}
	}
	return nil
}

// DeleteByStudent removes every override row for a student.
func (r *VisibilityRepository) DeleteByStudent(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM material_visibility WHERE student_email = $1", email); err != nil {
		return fmt.Errorf("delete overrides: %w", err)
	}
	return nil
}

func buildOverrideUpsert(rows []models.VisibilityOverride, now time.Time) (string, []interface{}) {
	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*4)
	for i, row := range rows {
		base := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, row.MaterialID, row.StudentEmail, row.Visible, now)
	}
	query := "INSERT INTO material_visibility (material_id, student_email, visible, updated_at) VALUES " +
		strings.Join(values, ", ") +
		" ON CONFLICT (material_id, student_email) DO UPDATE SET visible = EXCLUDED.visible, updated_at = EXCLUDED.updated_at"
	return query, args
}
