package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/manabi-api/internal/models"
)

const studentColumns = "id, name, grade, email, parent_contact, auth_user_id, created_at, updated_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters ordered by name.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Email != "" {
		args = append(args, strings.ToLower(filter.Email))
		conditions = append(conditions, fmt.Sprintf("LOWER(email) = $%d", len(args)))
	}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY name, id", studentColumns, strings.Join(conditions, " AND "))
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by email, case-insensitively.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE LOWER(email) = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, strings.ToLower(email)); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListEmails returns every non-empty student email.
func (r *StudentRepository) ListEmails(ctx context.Context) ([]string, error) {
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, "SELECT email FROM students WHERE email IS NOT NULL AND email <> '' ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list student emails: %w", err)
	}
	return emails, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, grade, email, parent_contact, auth_user_id, created_at, updated_at)
        VALUES (:id, :name, :grade, :email, :parent_contact, :auth_user_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. It returns sql.ErrNoRows for unknown ids.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, grade = :grade, email = :email, parent_contact = :parent_contact,
        auth_user_id = :auth_user_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a student record.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}
