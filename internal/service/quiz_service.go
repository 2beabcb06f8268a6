package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type quizRepository interface {
	List(ctx context.Context) ([]models.Quiz, error)
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	ListQuestions(ctx context.Context, quizID string) ([]models.Question, error)
	CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) error
	ListAttemptsByUser(ctx context.Context, email string) ([]models.AttemptSummary, error)
}

// ScoreResult is the outcome of automatic grading.
type ScoreResult struct {
	Score    int
	Correct  int
	Gradable int
}

// QuizService serves quizzes and grades attempts.
type QuizService struct {
	repo      quizRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs the quiz service.
func NewQuizService(repo quizRepository, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{repo: repo, validator: validate, logger: logger}
}

// List returns quiz summaries.
func (s *QuizService) List(ctx context.Context) ([]dto.QuizSummary, error) {
	quizzes, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list quizzes")
	}
	out := make([]dto.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, dto.NewQuizSummary(q))
	}
	return out, nil
}

// Get returns a quiz with its questions. Answer keys are included only when withKeys is set.
func (s *QuizService) Get(ctx context.Context, id string, withKeys bool) (*dto.QuizResponse, error) {
	quiz, questions, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.QuizResponse{QuizSummary: dto.NewQuizSummary(*quiz), Questions: make([]dto.QuestionResponse, 0, len(questions))}
	for _, q := range questions {
		item, err := dto.NewQuestionResponse(q, withKeys)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to decode quiz question")
		}
		resp.Questions = append(resp.Questions, item)
	}
	resp.QuestionCount = len(questions)
	return resp, nil
}

// Submit grades the answers against the stored keys and records the attempt.
func (s *QuizService) Submit(ctx context.Context, req dto.SubmitAttemptRequest) (*dto.AttemptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid attempt payload")
	}
	_, questions, err := s.load(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	result, err := ScoreAttempt(questions, req.Answers)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to grade attempt")
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]dto.AnswerValue{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to encode answers")
	}
	attempt := &models.QuizAttempt{
		QuizID:    req.QuizID,
		UserEmail: dto.NormalizeEmail(req.UserEmail),
		Answers:   types.JSONText(raw),
		ScoreAuto: sql.NullInt64{Int64: int64(result.Score), Valid: true},
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, appErrors.Internal(err, "failed to save attempt")
	}

	return &dto.AttemptResponse{
		ID:          attempt.ID,
		QuizID:      attempt.QuizID,
		UserEmail:   attempt.UserEmail,
		ScoreAuto:   result.Score,
		Correct:     result.Correct,
		Gradable:    result.Gradable,
		SubmittedAt: attempt.SubmittedAt,
	}, nil
}

// AttemptsByUser lists a user's attempts, newest first.
func (s *QuizService) AttemptsByUser(ctx context.Context, email string) ([]models.AttemptSummary, error) {
	attempts, err := s.repo.ListAttemptsByUser(ctx, dto.NormalizeEmail(email))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list attempts")
	}
	return attempts, nil
}

func (s *QuizService) load(ctx context.Context, id string) (*models.Quiz, []models.Question, error) {
	quiz, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, nil, appErrors.Internal(err, "failed to load quiz")
	}
	questions, err := s.repo.ListQuestions(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to load quiz questions")
	}
	return quiz, questions, nil
}

// ScoreAttempt grades answers keyed by question id.
//
// Text questions are not gradable. A single choice answer must equal the key
// index, a multiple choice answer must contain exactly the key indices in any
// order, and a boolean answer must equal the key. Missing keys default to index
// 0, no indices and false.
// The score is the rounded percentage of gradable questions answered correctly,
// or 0 when nothing is gradable.
func ScoreAttempt(questions []models.Question, answers map[string]dto.AnswerValue) (ScoreResult, error) {
	var result ScoreResult
	for _, q := range questions {
		answer := answers[q.ID]
		switch q.Type {
		case models.QuestionSingle:
			result.Gradable++
			if len(answer) == 1 && answer[0] == strconv.FormatInt(q.CorrectIndex.Int64, 10) {
				result.Correct++
			}
		case models.QuestionMultiple:
			var keys []int
			if len(q.CorrectIndices) > 0 {
				if err := q.CorrectIndices.Unmarshal(&keys); err != nil {
					return ScoreResult{}, err
				}
			}
			result.Gradable++
			if sameSet(answer, keys) {
				result.Correct++
			}
		case models.QuestionBoolean:
			result.Gradable++
			if len(answer) == 1 && answer[0] == strconv.FormatBool(q.AnswerBool.Bool) {
				result.Correct++
			}
		}
	}
	if result.Gradable > 0 {
		result.Score = int(math.Round(float64(result.Correct) / float64(result.Gradable) * 100))
	}
	return result, nil
}

func sameSet(answer dto.AnswerValue, keys []int) bool {
	if len(answer) != len(keys) {
		return false
	}
	want := make([]string, 0, len(keys))
	for _, k := range keys {
		want = append(want, strconv.Itoa(k))
	}
	got := append([]string(nil), answer...)
	sort.Strings(want)
	sort.Strings(got)
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
