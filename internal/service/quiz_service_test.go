package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type mockQuizRepo struct {
	quizzes   map[string]models.Quiz
	questions map[string][]models.Question
	attempts  []models.QuizAttempt
}

func (m *mockQuizRepo) List(ctx context.Context) ([]models.Quiz, error) {
	out := make([]models.Quiz, 0, len(m.quizzes))
	for _, q := range m.quizzes {
		out = append(out, q)
	}
	return out, nil
}

func (m *mockQuizRepo) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	q, ok := m.quizzes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &q, nil
}

func (m *mockQuizRepo) ListQuestions(ctx context.Context, quizID string) ([]models.Question, error) {
	return m.questions[quizID], nil
}

func (m *mockQuizRepo) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	attempt.ID = "attempt-1"
	attempt.SubmittedAt = time.Now()
	m.attempts = append(m.attempts, *attempt)
	return nil
}

func (m *mockQuizRepo) ListAttemptsByUser(ctx context.Context, email string) ([]models.AttemptSummary, error) {
	return nil, nil
}

func sampleQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Type: models.QuestionSingle, Choices: types.JSONText(`["1","2","3"]`), CorrectIndex: sql.NullInt64{Int64: 1, Valid: true}},
		{ID: "q2", Type: models.QuestionMultiple, Choices: types.JSONText(`["2","4","5"]`), CorrectIndices: types.JSONText(`[2,0]`)},
		{ID: "q3", Type: models.QuestionBoolean, AnswerBool: sql.NullBool{Bool: false, Valid: true}},
		{ID: "q4", Type: models.QuestionText, RubricHint: sql.NullString{String: "mention halves", Valid: true}},
	}
}

func TestScoreAttemptAllCorrect(t *testing.T) {
	result, err := ScoreAttempt(sampleQuestions(), map[string]dto.AnswerValue{
		"q1": {"1"},
		"q2": {"0", "2"},
		"q3": {"false"},
		"q4": {"anything"},
	})
	require.NoError(t, err)
	assert.Equal(t, ScoreResult{Score: 100, Correct: 3, Gradable: 3}, result)
}

func TestScoreAttemptPartialRounds(t *testing.T) {
	result, err := ScoreAttempt(sampleQuestions(), map[string]dto.AnswerValue{
		"q1": {"1"},
		"q2": {"0"},
		"q3": {"true"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 33, result.Score)

	result, err = ScoreAttempt(sampleQuestions(), map[string]dto.AnswerValue{"q1": {"1"}, "q2": {"2", "0"}})
	require.NoError(t, err)
	assert.Equal(t, 67, result.Score)
}

func TestScoreAttemptMultipleRequiresExactSet(t *testing.T) {
	result, err := ScoreAttempt(sampleQuestions()[1:2], map[string]dto.AnswerValue{"q2": {"0", "1", "2"}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
}

func TestScoreAttemptNothingGradable(t *testing.T) {
	result, err := ScoreAttempt(sampleQuestions()[3:], map[string]dto.AnswerValue{"q4": {"text"}})
	require.NoError(t, err)
	assert.Equal(t, ScoreResult{}, result)
}

func TestScoreAttemptMissingKeysUseDefaults(t *testing.T) {
	questions := []models.Question{
		{ID: "q1", Type: models.QuestionSingle, Choices: types.JSONText(`["a","b"]`)},
		{ID: "q2", Type: models.QuestionMultiple, Choices: types.JSONText(`["a","b"]`)},
		{ID: "q3", Type: models.QuestionBoolean},
	}

	result, err := ScoreAttempt(questions, map[string]dto.AnswerValue{"q1": {"1"}, "q2": {"0"}, "q3": {"true"}})
	require.NoError(t, err)
	assert.Equal(t, ScoreResult{Score: 0, Correct: 0, Gradable: 3}, result)

	result, err = ScoreAttempt(questions, map[string]dto.AnswerValue{"q1": {"0"}, "q2": {}, "q3": {"false"}})
	require.NoError(t, err)
	assert.Equal(t, ScoreResult{Score: 100, Correct: 3, Gradable: 3}, result)
}

func TestQuizServiceSubmitStoresScore(t *testing.T) {
	repo := &mockQuizRepo{
		quizzes:   map[string]models.Quiz{"qz1": {ID: "qz1", Title: "Numbers"}},
		questions: map[string][]models.Question{"qz1": sampleQuestions()},
	}
	svc := NewQuizService(repo, nil, nil)

	resp, err := svc.Submit(context.Background(), dto.SubmitAttemptRequest{
		QuizID:    "qz1",
		UserEmail: "Hana@Example.com",
		Answers:   map[string]dto.AnswerValue{"q1": {"1"}, "q3": {"false"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 67, resp.ScoreAuto)
	assert.Equal(t, "hana@example.com", resp.UserEmail)
	require.Len(t, repo.attempts, 1)
	assert.Equal(t, int64(67), repo.attempts[0].ScoreAuto.Int64)
	assert.JSONEq(t, `{"q1":["1"],"q3":["false"]}`, string(repo.attempts[0].Answers))
}

func TestQuizServiceSubmitErrors(t *testing.T) {
	svc := NewQuizService(&mockQuizRepo{}, nil, nil)

	_, err := svc.Submit(context.Background(), dto.SubmitAttemptRequest{QuizID: "qz1", UserEmail: "bad"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), dto.SubmitAttemptRequest{QuizID: "qz1", UserEmail: "a@example.com"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestQuizServiceGetHidesKeysForStudents(t *testing.T) {
	repo := &mockQuizRepo{
		quizzes:   map[string]models.Quiz{"qz1": {ID: "qz1", Title: "Numbers"}},
		questions: map[string][]models.Question{"qz1": sampleQuestions()},
	}
	svc := NewQuizService(repo, nil, nil)

	resp, err := svc.Get(context.Background(), "qz1", false)
	require.NoError(t, err)
	require.Len(t, resp.Questions, 4)
	assert.Equal(t, 4, resp.QuestionCount)
	assert.Nil(t, resp.Questions[0].CorrectIndex)

	resp, err = svc.Get(context.Background(), "qz1", true)
	require.NoError(t, err)
	require.NotNil(t, resp.Questions[0].CorrectIndex)
	assert.Equal(t, 1, *resp.Questions[0].CorrectIndex)
}
