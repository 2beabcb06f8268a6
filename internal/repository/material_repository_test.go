package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/models"
)

var materialRowColumns = []string{"id", "title", "grade", "level", "tags", "html_content", "thumbnail_url", "description", "created_at", "updated_at"}

func TestMaterialRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(materialRowColumns).
		AddRow("m1", "Fractions", "3-4", "easy", "{math,fractions}", "<p>1/2</p>", nil, "intro", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM materials WHERE 1=1 AND grade = $1 AND $2 = ANY(tags) ORDER BY updated_at DESC, id")).
		WithArgs("3-4", "math").
		WillReturnRows(rows)

	materials, err := repo.List(context.Background(), models.MaterialFilter{Grade: "3-4", Tag: "math"})
	require.NoError(t, err)
	require.Len(t, materials, 1)
	assert.Equal(t, []string{"math", "fractions"}, []string(materials[0].Tags))
	assert.Nil(t, materials[0].ThumbnailURL)
	require.NotNil(t, materials[0].Description)
	assert.Equal(t, "intro", *materials[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryListIDs(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM materials ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1").AddRow("m2"))

	ids, err := repo.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectExec("INSERT INTO materials").
		WithArgs(sqlmock.AnyArg(), "Shapes", "1-2", "normal", sqlmock.AnyArg(), "", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	material := &models.Material{Title: "Shapes", Grade: "1-2", Level: "normal"}
	require.NoError(t, repo.Create(context.Background(), material))
	assert.NotEmpty(t, material.ID)
	assert.NotNil(t, material.Tags)
	assert.False(t, material.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryUpdateMissingReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectExec("UPDATE materials SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Material{ID: "missing", Title: "x", Grade: "1-2", Level: "easy"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM materials WHERE id = $1")).
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryExists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaterialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM materials WHERE id = $1")).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM materials WHERE id = $1")).
		WithArgs("m9").
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.Exists(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "m9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
