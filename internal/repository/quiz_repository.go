package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/manabi-api/internal/models"
)

// QuizRepository reads quizzes and stores attempts.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs a QuizRepository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// List returns quizzes with their question counts.
func (r *QuizRepository) List(ctx context.Context) ([]models.Quiz, error) {
	const query = `SELECT q.id, q.title, q.level, q.description, q.created_at, q.updated_at, COUNT(qq.id) AS question_count
        FROM quizzes q LEFT JOIN quiz_questions qq ON qq.quiz_id = q.id
        GROUP BY q.id ORDER BY q.created_at DESC, q.id`
	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// FindByID fetches one quiz.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	const query = `SELECT q.id, q.title, q.level, q.description, q.created_at, q.updated_at,
        (SELECT COUNT(*) FROM quiz_questions qq WHERE qq.quiz_id = q.id) AS question_count
        FROM quizzes q WHERE q.id = $1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ListQuestions returns the questions of a quiz ordered by idx.
func (r *QuizRepository) ListQuestions(ctx context.Context, quizID string) ([]models.Question, error) {
	const query = `SELECT id, quiz_id, idx, type, text, choices, correct_index, correct_indices, answer_bool, rubric_hint, explanation
        FROM quiz_questions WHERE quiz_id = $1 ORDER BY idx, id`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, quizID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return questions, nil
}

// CreateAttempt stores a scored attempt.
func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.SubmittedAt.IsZero() {
		attempt.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_attempts (id, quiz_id, user_email, answers, score_auto, submitted_at)
        VALUES (:id, :quiz_id, :user_email, :answers, :score_auto, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attempt); err != nil {
		return fmt.Errorf("create quiz attempt: %w", err)
	}
	return nil
}

// ListAttemptsByUser returns a user's attempts with quiz titles, newest first.
func (r *QuizRepository) ListAttemptsByUser(ctx context.Context, email string) ([]models.AttemptSummary, error) {
	const query = `SELECT a.id, a.quiz_id, q.title AS quiz_title, a.score_auto, a.submitted_at
        FROM quiz_attempts a JOIN quizzes q ON q.id = a.quiz_id
        WHERE a.user_email = $1 ORDER BY a.submitted_at DESC`
	var attempts []models.AttemptSummary
	if err := r.db.SelectContext(ctx, &attempts, query, email); err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	return attempts, nil
}
