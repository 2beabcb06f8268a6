package models

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// QuestionType enumerates supported quiz question kinds.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionBoolean  QuestionType = "boolean"
	QuestionText     QuestionType = "text"
)

// Quiz groups ordered questions.
type Quiz struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Level         string    `db:"level" json:"level"`
	Description   *string   `db:"description" json:"description,omitempty"`
	QuestionCount int       `db:"question_count" json:"question_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Question is a single quiz item. Choices and CorrectIndices are JSON arrays.
type Question struct {
	ID             string         `db:"id" json:"id"`
	QuizID         string         `db:"quiz_id" json:"quiz_id"`
	Idx            int            `db:"idx" json:"idx"`
	Type           QuestionType   `db:"type" json:"type"`
	Text           string         `db:"text" json:"text"`
	Choices        types.JSONText `db:"choices" json:"choices"`
	CorrectIndex   sql.NullInt64  `db:"correct_index" json:"-"`
	CorrectIndices types.JSONText `db:"correct_indices" json:"-"`
	AnswerBool     sql.NullBool   `db:"answer_bool" json:"-"`
	RubricHint     sql.NullString `db:"rubric_hint" json:"-"`
	Explanation    sql.NullString `db:"explanation" json:"-"`
}

// QuizAttempt is a submitted set of answers with its automatic score.
type QuizAttempt struct {
	ID          string         `db:"id" json:"id"`
	QuizID      string         `db:"quiz_id" json:"quiz_id"`
	UserEmail   string         `db:"user_email" json:"user_email"`
	Answers     types.JSONText `db:"answers" json:"answers"`
	ScoreAuto   sql.NullInt64  `db:"score_auto" json:"score_auto"`
	SubmittedAt time.Time      `db:"submitted_at" json:"submitted_at"`
}

// AttemptSummary joins an attempt with its quiz title for progress reports.
type AttemptSummary struct {
	ID          string        `db:"id"`
	QuizID      string        `db:"quiz_id"`
	QuizTitle   string        `db:"quiz_title"`
	ScoreAuto   sql.NullInt64 `db:"score_auto"`
	SubmittedAt time.Time     `db:"submitted_at"`
}
