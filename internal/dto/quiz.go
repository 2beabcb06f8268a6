package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/manabi-api/internal/models"
)

// QuizSummary is a quiz without its questions.
type QuizSummary struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Level         string  `json:"level"`
	Description   *string `json:"description,omitempty"`
	QuestionCount int     `json:"questionCount"`
}

// QuestionResponse is a quiz question. Answer keys are only populated for teachers.
type QuestionResponse struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Text           string   `json:"text"`
	Choices        []string `json:"choices,omitempty"`
	CorrectIndex   *int     `json:"correctIndex,omitempty"`
	CorrectIndices []int    `json:"correctIndices,omitempty"`
	AnswerBool     *bool    `json:"answerBool,omitempty"`
	RubricHint     *string  `json:"rubricHint,omitempty"`
	Explanation    *string  `json:"explanation,omitempty"`
}

// QuizResponse is a quiz with its ordered questions.
type QuizResponse struct {
	QuizSummary
	Questions []QuestionResponse `json:"questions"`
}

// AnswerValue holds a submitted answer. Scalars become a single element.
type AnswerValue []string

// UnmarshalJSON accepts a string, number, boolean, null or an array of those.
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			value, err := scalarString(item)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		*a = values
		return nil
	}
	value, err := scalarString(data)
	if err != nil {
		return err
	}
	*a = AnswerValue{value}
	return nil
}

func scalarString(data json.RawMessage) (string, error) {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", err
	}
	switch v := decoded.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported answer value %s", string(data))
	}
}

// SubmitAttemptRequest submits answers keyed by question id.
type SubmitAttemptRequest struct {
	QuizID    string                 `json:"quizId" validate:"required"`
	UserEmail string                 `json:"userEmail" validate:"required,email"`
	Answers   map[string]AnswerValue `json:"answers"`
}

// AttemptResponse is the stored attempt with its automatic score.
type AttemptResponse struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	UserEmail   string    `json:"userEmail"`
	ScoreAuto   int       `json:"scoreAuto"`
	Correct     int       `json:"correct"`
	Gradable    int       `json:"gradable"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewQuizSummary maps a quiz row.
func NewQuizSummary(q models.Quiz) QuizSummary {
	return QuizSummary{
		ID:            q.ID,
		Title:         q.Title,
		Level:         q.Level,
		Description:   q.Description,
		QuestionCount: q.QuestionCount,
	}
}

// NewQuestionResponse maps a question row, decoding its JSON columns.
func NewQuestionResponse(q models.Question, withKeys bool) (QuestionResponse, error) {
	resp := QuestionResponse{ID: q.ID, Type: string(q.Type), Text: q.Text}
	if len(q.Choices) > 0 {
		if err := q.Choices.Unmarshal(&resp.Choices); err != nil {
			return QuestionResponse{}, fmt.Errorf("decode choices for question %s: %w", q.ID, err)
		}
	}
	if !withKeys {
		return resp, nil
	}
	if q.CorrectIndex.Valid {
		idx := int(q.CorrectIndex.Int64)
		resp.CorrectIndex = &idx
	}
	if len(q.CorrectIndices) > 0 {
		if err := q.CorrectIndices.Unmarshal(&resp.CorrectIndices); err != nil {
			return QuestionResponse{}, fmt.Errorf("decode correct indices for question %s: %w", q.ID, err)
		}
	}
	if q.AnswerBool.Valid {
		value := q.AnswerBool.Bool
		resp.AnswerBool = &value
	}
	if q.RubricHint.Valid {
		hint := q.RubricHint.String
		resp.RubricHint = &hint
	}
	if q.Explanation.Valid {
		explanation := q.Explanation.String
		resp.Explanation = &explanation
	}
	return resp, nil
}
