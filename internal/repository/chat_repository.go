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

const (
	messageColumns      = "id, sender_email, receiver_email, text, read, created_at"
	defaultMessageLimit = 200
)

// ChatRepository persists direct messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs a ChatRepository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create stores a message.
func (r *ChatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_email, receiver_email, text, read, created_at)
        VALUES (:id, :sender_email, :receiver_email, :text, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListConversation returns messages exchanged between two users, oldest first.
func (r *ChatRepository) ListConversation(ctx context.Context, a, b string, since *time.Time, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > defaultMessageLimit {
		limit = defaultMessageLimit
	}
	args := []interface{}{a, b}
	conditions := []string{"((sender_email = $1 AND receiver_email = $2) OR (sender_email = $2 AND receiver_email = $1))"}
	if since != nil {
		args = append(args, since.UTC())
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM messages WHERE %s ORDER BY created_at ASC, id LIMIT %d", messageColumns, strings.Join(conditions, " AND "), limit)

	var rows []models.ChatMessage
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return rows, nil
}

// ListForUserSince returns messages sent or received by a user after the cursor, oldest first.
func (r *ChatRepository) ListForUserSince(ctx context.Context, email string, since time.Time) ([]models.ChatMessage, error) {
	query := fmt.Sprintf("SELECT %s FROM messages WHERE (receiver_email = $1 OR sender_email = $1) AND created_at > $2 ORDER BY created_at ASC, id LIMIT %d", messageColumns, defaultMessageLimit)
	var rows []models.ChatMessage
	if err := r.db.SelectContext(ctx, &rows, query, email, since.UTC()); err != nil {
		return nil, fmt.Errorf("list messages since: %w", err)
	}
	return rows, nil
}

// MarkRead flags the given messages addressed to receiver as read and returns the ids that changed.
func (r *ChatRepository) MarkRead(ctx context.Context, receiver string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	query, args, err := sqlx.In(`UPDATE messages SET read = TRUE WHERE receiver_email = ? AND read = FALSE AND id IN (?) RETURNING id`, receiver, ids)
	if err != nil {
		return nil, fmt.Errorf("build mark read: %w", err)
	}
	var updated []string
	if err := r.db.SelectContext(ctx, &updated, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	return updated, nil
}

// MarkConversationRead flags every unread message from sender to receiver and returns the changed ids.
func (r *ChatRepository) MarkConversationRead(ctx context.Context, receiver, sender string) ([]string, error) {
	const query = `UPDATE messages SET read = TRUE WHERE receiver_email = $1 AND sender_email = $2 AND read = FALSE RETURNING id`
	var updated []string
	if err := r.db.SelectContext(ctx, &updated, query, receiver, sender); err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	return updated, nil
}

// UnreadCounts returns unread message counts per sender for a receiver.
func (r *ChatRepository) UnreadCounts(ctx context.Context, receiver string) ([]models.UnreadCount, error) {
	const query = `SELECT sender_email, COUNT(*) AS count FROM messages WHERE receiver_email = $1 AND read = FALSE GROUP BY sender_email ORDER BY sender_email`
	var rows []models.UnreadCount
	if err := r.db.SelectContext(ctx, &rows, query, receiver); err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}
	return rows, nil
}
