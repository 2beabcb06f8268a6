package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/models"
)

func TestVisibilityRepositoryGetPrefMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_material_prefs WHERE student_email = $1")).
		WithArgs("a@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetPref(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositoryUpsertPref(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_email) DO UPDATE SET mode = EXCLUDED.mode")).
		WithArgs("a@example.com", "custom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertPref(context.Background(), "a@example.com", models.VisibilityModeCustom))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM material_visibility WHERE student_email = $1 ORDER BY material_id")).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"material_id", "student_email", "visible", "updated_at"}).
			AddRow("m1", "a@example.com", true, now).
			AddRow("m2", "a@example.com", false, now))

	rows, err := repo.ListByStudent(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Visible)
	assert.False(t, rows[1].Visible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositoryUpsertOverridesSingleStatement(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO material_visibility (material_id, student_email, visible, updated_at) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8) ON CONFLICT (material_id, student_email) DO UPDATE SET visible = EXCLUDED.visible")).
		WithArgs("m1", "a@example.com", true, sqlmock.AnyArg(), "m2", "a@example.com", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpsertOverrides(context.Background(), []models.VisibilityOverride{
		{MaterialID: "m1", StudentEmail: "a@example.com", Visible: true},
		{MaterialID: "m2", StudentEmail: "a@example.com", Visible: false},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositoryUpsertOverridesBatches(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	rows := make([]models.VisibilityOverride, overrideBatchSize+1)
	for i := range rows {
		rows[i] = models.VisibilityOverride{MaterialID: fmt.Sprintf("m%d", i), StudentEmail: "a@example.com"}
	}
	mock.ExpectExec("INSERT INTO material_visibility").WillReturnResult(sqlmock.NewResult(0, overrideBatchSize))
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4) ON CONFLICT")).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertOverrides(context.Background(), rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositoryUpsertOverridesEmpty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	require.NoError(t, repo.UpsertOverrides(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisibilityRepositoryDeleteByStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewVisibilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM material_visibility WHERE student_email = $1")).
		WithArgs("a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByStudent(context.Background(), "a@example.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
