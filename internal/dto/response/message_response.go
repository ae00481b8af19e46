package response

import (
	"time"

	"github.com/huddle-chat/huddle/internal/model"
)

// MessageResponse represents a chat message
type MessageResponse struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	Type       string `json:"type"`
	IsEdited   bool   `json:"is_edited"`
	EditedAt   string `json:"edited_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// NewMessageResponse creates a message response from model
func NewMessageResponse(msg *model.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		Type:       string(msg.Type),
		IsEdited:   msg.IsEdited,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339),
	}
	if msg.EditedAt.Valid {
		resp.EditedAt = msg.EditedAt.Time.Format(time.RFC3339)
	}
	return resp
}

// NewMessageListResponse converts messages
func NewMessageListResponse(messages []*model.Message) []*MessageResponse {
	out := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, NewMessageResponse(m))
	}
	return out
}

// ReadReceiptResponse represents a read receipt
type ReadReceiptResponse struct {
	UserID string `json:"user_id"`
	ReadAt string `json:"read_at"`
}

// NewReadReceiptListResponse converts read receipts
func NewReadReceiptListResponse(receipts []*model.ReadReceipt) []*ReadReceiptResponse {
	out := make([]*ReadReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		out = append(out, &ReadReceiptResponse{
			UserID: r.UserID,
			ReadAt: r.ReadAt.Format(time.RFC3339),
		})
	}
	return out
}
