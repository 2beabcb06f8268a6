package models

import "time"

// ChatMessage is a direct message between two users.
type ChatMessage struct {
	ID            string    `db:"id" json:"id"`
	SenderEmail   string    `db:"sender_email" json:"sender_email"`
	ReceiverEmail string    `db:"receiver_email" json:"receiver_email"`
	Text          string    `db:"text" json:"text"`
	Read          bool      `db:"read" json:"read"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UnreadCount is the number of unread messages from one sender.
type UnreadCount struct {
	SenderEmail string `db:"sender_email" json:"sender_email"`
	Count       int    `db:"count" json:"count"`
}
