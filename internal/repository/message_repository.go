package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/huddle-chat/huddle/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMessageNotFound = errors.New("message not found")
)

type MessageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a message together with the sender's own read receipt;
// senders implicitly have read what they wrote.
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (room_id, sender_id, sender_name, content, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		msg.RoomID,
		msg.SenderID,
		msg.SenderName,
		msg.Content,
		msg.Type,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	receiptQuery := `
		INSERT INTO message_reads (message_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (message_id, user_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, receiptQuery, msg.ID, msg.SenderID); err != nil {
		return fmt.Errorf("failed to create sender receipt: %w", err)
	}

	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	query := `SELECT * FROM messages WHERE id = $1`

	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message by id: %w", err)
	}

	return &msg, nil
}

// UpdateContent edits a message body and stamps the edit
func (r *MessageRepository) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	var msg model.Message
	query := `
		UPDATE messages
		SET content = $2, is_edited = true, edited_at = NOW()
		WHERE id = $1
		RETURNING *`

	if err := r.db.GetContext(ctx, &msg, query, id, content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return &msg, nil
}

// Delete removes a message permanently; receipts go with it
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM messages WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// ListByRoom lists a room's messages newest first
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]*model.Message, error) {
	query := `
		SELECT * FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var messages []*model.Message
	if err := r.db.SelectContext(ctx, &messages, query, roomID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// MarkAllRead appends a receipt for every message in the room the reader
// has not authored and not already read. ON CONFLICT keeps it idempotent:
// one receipt per reader per message, no matter how often it runs.
func (r *MessageRepository) MarkAllRead(ctx context.Context, roomID, userID string) (int64, error) {
	query := `
		INSERT INTO message_reads (message_id, user_id)
		SELECT m.id, $2 FROM messages m
		WHERE m.room_id = $1 AND m.sender_id <> $2
		ON CONFLICT (message_id, user_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, roomID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// GetReadReceipts lists who has read a message
func (r *MessageRepository) GetReadReceipts(ctx context.Context, messageID string) ([]*model.ReadReceipt, error) {
	query := `SELECT * FROM message_reads WHERE message_id = $1 ORDER BY read_at ASC`

	var receipts []*model.ReadReceipt
	if err := r.db.SelectContext(ctx, &receipts, query, messageID); err != nil {
		return nil, fmt.Errorf("failed to get read receipts: %w", err)
	}

	return receipts, nil
}
