package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/response"
)

type quizService interface {
	List(ctx context.Context) ([]dto.QuizSummary, error)
	Get(ctx context.Context, id string, withKeys bool) (*dto.QuizResponse, error)
	Submit(ctx context.Context, req dto.SubmitAttemptRequest) (*dto.AttemptResponse, error)
	AttemptsByUser(ctx context.Context, email string) ([]models.AttemptSummary, error)
}

// QuizHandler exposes quizzes and attempt submission.
type QuizHandler struct {
	service quizService
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(service quizService) *QuizHandler {
	return &QuizHandler{service: service}
}

// List godoc
// @Summary List quizzes
// @Tags Quizzes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /quizzes [get]
func (h *QuizHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// Get godoc
// @Summary Get a quiz with its questions
// @Description Answer keys are only included for teachers.
// @Tags Quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} response.Envelope{data=dto.QuizResponse}
// @Failure 404 {object} response.Envelope
// @Router /quizzes/{id} [get]
func (h *QuizHandler) Get(c *gin.Context) {
	withKeys := false
	if claims := claimsFromContext(c); claims != nil {
		withKeys = claims.IsTeacher()
	}
	quiz, err := h.service.Get(c.Request.Context(), c.Param("id"), withKeys)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quiz)
}

// Submit godoc
// @Summary Submit a quiz attempt
// @Description The score is computed on the server from the stored answer keys.
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param payload body dto.SubmitAttemptRequest true "Attempt"
// @Success 201 {object} response.Envelope{data=dto.AttemptResponse}
// @Failure 400 {object} response.Envelope
// @Router /quiz-attempts [post]
func (h *QuizHandler) Submit(c *gin.Context) {
	var req dto.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if err := requireSelfOrTeacher(c, req.UserEmail); err != nil {
		response.Error(c, err)
		return
	}
	attempt, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

// Attempts godoc
// @Summary List attempts for an email
// @Tags Quizzes
// @Produce json
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /quiz-attempts [get]
func (h *QuizHandler) Attempts(c *gin.Context) {
	email := queryEmail(c)
	if email == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "email is required"))
		return
	}
	if err := requireSelfOrTeacher(c, email); err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.AttemptsByUser(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries := make([]dto.AttemptEntry, 0, len(rows))
	for _, row := range rows {
		entry := dto.AttemptEntry{ID: row.ID, QuizID: row.QuizID, QuizTitle: row.QuizTitle, SubmittedAt: row.SubmittedAt}
		if row.ScoreAuto.Valid {
			score := int(row.ScoreAuto.Int64)
			entry.ScoreAuto = &score
		}
		entries = append(entries, entry)
	}
	response.JSON(c, http.StatusOK, entries)
}
