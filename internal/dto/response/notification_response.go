package response

import (
	"time"

	"github.com/huddle-chat/huddle/internal/model"
)

// NotificationResponse represents a notification ledger record
type NotificationResponse struct {
	ID        string     `json:"id"`
	SenderID  string     `json:"sender_id,omitempty"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Link      string     `json:"link"`
	Meta      model.Meta `json:"meta,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt string     `json:"created_at"`
}

// NewNotificationResponse creates a notification response from model
func NewNotificationResponse(n *model.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:        n.ID,
		SenderID:  n.GetSenderID(),
		Type:      string(n.Type),
		Message:   n.Message,
		Link:      n.Link,
		Meta:      n.Meta,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

// NewNotificationListResponse converts notifications
func NewNotificationListResponse(notifications []*model.Notification) []*NotificationResponse {
	out := make([]*NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NewNotificationResponse(n))
	}
	return out
}

// UnreadCountResponse carries the unread badge count
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// DispatchResponse reports how a notification was delivered. The unread
// count is omitted when it could not be computed; clients keep their
// current badge instead of rendering a negative one.
type DispatchResponse struct {
	Notification  *NotificationResponse `json:"notification"`
	Channel       string                `json:"channel"`
	UnreadCount   *int                  `json:"unread_count,omitempty"`
	Delivered     int                   `json:"delivered"`
	TokenFailures int                   `json:"token_failures,omitempty"`
}

// NewDispatchResponse builds a dispatch response, dropping the unread
// count when the pipeline reported it unknown
func NewDispatchResponse(notification *NotificationResponse, channel string, unreadCount, delivered, tokenFailures int) *DispatchResponse {
	resp := &DispatchResponse{
		Notification:  notification,
		Channel:       channel,
		Delivered:     delivered,
		TokenFailures: tokenFailures,
	}
	if unreadCount >= 0 {
		resp.UnreadCount = &unreadCount
	}
	return resp
}
