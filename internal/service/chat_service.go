package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/internal/models"
	"github.com/noah-isme/manabi-api/pkg/config"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/jobs"
	"github.com/noah-isme/manabi-api/pkg/realtime"
)

const streamBuffer = 64

type chatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListConversation(ctx context.Context, a, b string, since *time.Time, limit int) ([]models.ChatMessage, error)
	ListForUserSince(ctx context.Context, email string, since time.Time) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, receiver string, ids []string) ([]string, error)
	MarkConversationRead(ctx context.Context, receiver, sender string) ([]string, error)
	UnreadCounts(ctx context.Context, receiver string) ([]models.UnreadCount, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// ChatService stores direct messages and fans changes out to both participants.
type ChatService struct {
	repo      chatRepository
	bus       realtime.Bus
	warmer    jobEnqueuer
	cfg       config.ChatConfig
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs the chat service. bus and warmer are optional.
func NewChatService(repo chatRepository, bus realtime.Bus, warmer jobEnqueuer, cfg config.ChatConfig, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 6 * time.Second
	}
	return &ChatService{repo: repo, bus: bus, warmer: warmer, cfg: cfg, metrics: metrics, validator: validate, logger: logger}
}

// Topic returns the channel carrying events for one user.
func (s *ChatService) Topic(email string) string {
	return s.cfg.ChannelPrefix + dto.NormalizeEmail(email)
}

// Send stores a message from sender and notifies both sides.
func (s *ChatService) Send(ctx context.Context, sender string, req dto.SendMessageRequest) (*dto.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid message")
	}
	sender = dto.NormalizeEmail(sender)
	receiver := dto.NormalizeEmail(req.To)
	if sender == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "sender is unknown")
	}
	if sender == receiver {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	msg := &models.ChatMessage{SenderEmail: sender, ReceiverEmail: receiver, Text: req.Text}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Internal(err, "failed to send message")
	}
	s.metrics.IncChatMessage()

	resp := dto.NewMessageResponse(*msg)
	s.publish(ctx, realtime.EventInsert, resp, sender, receiver)

	if s.warmer != nil && len(ExtractURLs(msg.Text)) > 0 {
		if err := s.warmer.TryEnqueue(jobs.Job{Type: JobTypeWarmPreview, Payload: msg.Text}); err != nil {
			s.logger.Warn("failed to queue preview warm-up", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return &resp, nil
}

// Conversation lists messages between the caller and partner, then marks the
// partner's messages to the caller as read.
func (s *ChatService) Conversation(ctx context.Context, caller string, query dto.MessageQuery) ([]dto.MessageResponse, error) {
	caller = dto.NormalizeEmail(caller)
	partner := dto.NormalizeEmail(query.Partner)
	if partner == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "partner is required")
	}

	rows, err := s.repo.ListConversation(ctx, caller, partner, query.Since, query.Limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load messages")
	}

	updated, err := s.repo.MarkConversationRead(ctx, caller, partner)
	if err != nil {
		s.logger.Warn("failed to mark conversation read", zap.String("reader", caller), zap.String("partner", partner), zap.Error(err))
	}
	if len(updated) > 0 {
		read := make(map[string]struct{}, len(updated))
		for _, id := range updated {
			read[id] = struct{}{}
		}
		for i := range rows {
			if _, ok := read[rows[i].ID]; ok {
				rows[i].Read = true
			}
		}
		s.publish(ctx, realtime.EventUpdate, dto.ReadReceipt{Reader: caller, IDs: updated}, caller, partner)
	}
	return dto.NewMessageResponses(rows), nil
}

// MarkRead flags messages addressed to the caller as read.
func (s *ChatService) MarkRead(ctx context.Context, caller string, req dto.MarkReadRequest) (*dto.MarkReadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "ids are required")
	}
	caller = dto.NormalizeEmail(caller)
	updated, err := s.repo.MarkRead(ctx, caller, req.IDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to mark messages read")
	}
	if len(updated) > 0 {
		s.publish(ctx, realtime.EventUpdate, dto.ReadReceipt{Reader: caller, IDs: updated}, caller)
	}
	return &dto.MarkReadResponse{Updated: int64(len(updated))}, nil
}

// Unread reports unread counts per sender for the caller.
func (s *ChatService) Unread(ctx context.Context, caller string) (*dto.UnreadResponse, error) {
	rows, err := s.repo.UnreadCounts(ctx, dto.NormalizeEmail(caller))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count unread messages")
	}
	resp := dto.NewUnreadResponse(rows)
	return &resp, nil
}

// Stream delivers events for the user until ctx ends. It subscribes to the
// user's topic and falls back to polling when subscribing is not possible.
// The returned channel is closed when the stream stops.
func (s *ChatService) Stream(ctx context.Context, email string, since time.Time) <-chan realtime.Event {
	email = dto.NormalizeEmail(email)
	topic := s.Topic(email)
	out := make(chan realtime.Event, streamBuffer)

	var mu sync.Mutex
	closed := false
	deliver := func(event realtime.Event, block bool) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		if block {
			select {
			case out <- event:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- event:
		default:
			s.logger.Warn("chat stream buffer full, dropping event", zap.String("topic", topic))
		}
	}

	go func() {
		done := s.metrics.StreamOpened()
		defer func() {
			mu.Lock()
			closed = true
			close(out)
			mu.Unlock()
			done()
		}()

		if s.bus != nil && s.cfg.RealtimeEnabled {
			sub, err := s.bus.Subscribe(ctx, topic, func(event realtime.Event) { deliver(event, false) })
			if err == nil {
				<-ctx.Done()
				_ = sub.Close()
				return
			}
			s.logger.Warn("chat subscribe failed, polling instead", zap.String("topic", topic), zap.Error(err))
		}

		cursor := since
		if cursor.IsZero() {
			cursor = time.Now().UTC()
		}
		realtime.Poll(ctx, s.cfg.PollInterval, func(ctx context.Context) error {
			rows, err := s.repo.ListForUserSince(ctx, email, cursor)
			if err != nil {
				return err
			}
			for _, row := range rows {
				event, err := realtime.NewEvent(topic, realtime.EventInsert, dto.NewMessageResponse(row))
				if err != nil {
					return err
				}
				deliver(event, true)
				cursor = row.CreatedAt
			}
			return nil
		}, func(err error) {
			s.logger.Warn("chat poll failed", zap.String("topic", topic), zap.Error(err))
		})
	}()

	return out
}

func (s *ChatService) publish(ctx context.Context, typ realtime.EventType, payload interface{}, recipients ...string) {
	if s.bus == nil || !s.cfg.RealtimeEnabled {
		return
	}
	for _, email := range recipients {
		event, err := realtime.NewEvent(s.Topic(email), typ, payload)
		if err != nil {
			s.logger.Warn("failed to encode chat event", zap.Error(err))
			return
		}
		if err := s.bus.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("failed to publish chat event", zap.String("topic", event.Topic), zap.String("type", string(typ)), zap.Error(err))
		}
	}
}
