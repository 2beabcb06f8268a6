package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/manabi-api/internal/dto"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/realtime"
	"github.com/noah-isme/manabi-api/pkg/response"
)

const streamHeartbeat = 25 * time.Second

type chatService interface {
	Send(ctx context.Context, sender string, req dto.SendMessageRequest) (*dto.MessageResponse, error)
	Conversation(ctx context.Context, caller string, query dto.MessageQuery) ([]dto.MessageResponse, error)
	MarkRead(ctx context.Context, caller string, req dto.MarkReadRequest) (*dto.MarkReadResponse, error)
	Unread(ctx context.Context, caller string) (*dto.UnreadResponse, error)
	Stream(ctx context.Context, email string, since time.Time) <-chan realtime.Event
}

// ChatHandler exposes direct messaging between teachers and students.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs ChatHandler.
func NewChatHandler(service chatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Send godoc
// @Summary Send a message
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope{data=dto.MessageResponse}
// @Router /chat/messages [post]
func (h *ChatHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	msg, err := h.service.Send(c.Request.Context(), claims.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// List godoc
// @Summary List a conversation
// @Description Also marks the partner's messages to the caller as read.
// @Tags Chat
// @Produce json
// @Param partner query string true "Other participant's email"
// @Param since query string false "RFC3339 cursor"
// @Param limit query int false "Maximum messages (max 200)"
// @Success 200 {object} response.Envelope
// @Router /chat/messages [get]
func (h *ChatHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.MessageQuery{Partner: c.Query("partner")}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "since must be RFC3339"))
			return
		}
		query.Since = &since
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		query.Limit = limit
	}

	messages, err := h.service.Conversation(c.Request.Context(), claims.Email, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages)
}

// MarkRead godoc
// @Summary Mark messages read
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.MarkReadRequest true "Message ids"
// @Success 200 {object} response.Envelope{data=dto.MarkReadResponse}
// @Router /chat/messages/read [post]
func (h *ChatHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	resp, err := h.service.MarkRead(c.Request.Context(), claims.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Unread godoc
// @Summary Unread counts per sender
// @Tags Chat
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.UnreadResponse}
// @Router /chat/unread [get]
func (h *ChatHandler) Unread(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.Unread(c.Request.Context(), claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// Stream godoc
// @Summary Server-sent chat events
// @Description Emits "insert" and "update" events for the caller. Accepts access_token as a query parameter.
// @Tags Chat
// @Produce text/event-stream
// @Param since query string false "RFC3339 cursor for the polling fallback"
// @Success 200
// @Router /chat/stream [get]
func (h *ChatHandler) Stream(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var since time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "since must be RFC3339"))
			return
		}
		since = parsed
	}

	ctx := c.Request.Context()
	events := h.service.Stream(ctx, claims.Email, since)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"email": claims.Email})
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(strings.ToLower(string(event.Type)), event)
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
		}
		c.Writer.Flush()
	}
}
