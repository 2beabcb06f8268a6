package dto

import (
	"time"

	"github.com/noah-isme/manabi-api/internal/models"
)

// SendMessageRequest posts a direct message.
type SendMessageRequest struct {
	To   string `json:"to" validate:"required,email"`
	Text string `json:"text" validate:"required,max=4000"`
}

// MarkReadRequest marks messages addressed to the caller as read.
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

// MessageQuery filters a conversation.
type MessageQuery struct {
	Partner string
	Since   *time.Time
	Limit   int
}

// MessageResponse keeps the column names used by the realtime payloads.
type MessageResponse struct {
	ID            string    `json:"id"`
	SenderEmail   string    `json:"sender_email"`
	ReceiverEmail string    `json:"receiver_email"`
	Text          string    `json:"text"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"created_at"`
}

// UnreadResponse reports unread counts per sender.
type UnreadResponse struct {
	Total    int            `json:"total"`
	BySender map[string]int `json:"bySender"`
}

// MarkReadResponse reports how many rows changed.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// NewMessageResponse maps a message row.
func NewMessageResponse(m models.ChatMessage) MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		SenderEmail:   m.SenderEmail,
		ReceiverEmail: m.ReceiverEmail,
		Text:          m.Text,
		Read:          m.Read,
		CreatedAt:     m.CreatedAt,
	}
}

// NewMessageResponses maps message rows, never returning nil.
func NewMessageResponses(rows []models.ChatMessage) []MessageResponse {
	out := make([]MessageResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewMessageResponse(row))
	}
	return out
}

// NewUnreadResponse folds per-sender counts.
func NewUnreadResponse(rows []models.UnreadCount) UnreadResponse {
	resp := UnreadResponse{BySender: make(map[string]int, len(rows))}
	for _, row := range rows {
		resp.BySender[row.SenderEmail] = row.Count
		resp.Total += row.Count
	}
	return resp
}

// ReadReceipt is published when a reader marks messages as read.
type ReadReceipt struct {
	Reader string   `json:"reader"`
	IDs    []string `json:"ids"`
}
