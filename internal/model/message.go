package model

import (
	"database/sql"
	"time"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

type Message struct {
	ID         string       `db:"id" json:"id"`
	RoomID     string       `db:"room_id" json:"room_id"`
	SenderID   string       `db:"sender_id" json:"sender_id"`
	SenderName string       `db:"sender_name" json:"sender_name"`
	Content    string       `db:"content" json:"content"`
	Type       MessageType  `db:"type" json:"type"`
	IsEdited   bool         `db:"is_edited" json:"is_edited"`
	EditedAt   sql.NullTime `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// IsSystem checks if this is a synthetic system message
func (m *Message) IsSystem() bool {
	return m.Type == MessageTypeSystem
}

// ReadReceipt marks that a user has read a message. Append-only; the
// sender's own receipt is written together with the message.
type ReadReceipt struct {
	MessageID string    `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ReadAt    time.Time `db:"read_at" json:"read_at"`
}

// MessageWithReads bundles a message with its read receipts
type MessageWithReads struct {
	Message
	ReadBy []*ReadReceipt `json:"read_by,omitempty"`
}
