package request

// DispatchNotificationRequest asks the dispatcher to persist and deliver
// a notification. Message is optional; empty falls back to the per-type
// template.
type DispatchNotificationRequest struct {
	RecipientID string                 `json:"recipient_id" binding:"required"`
	Type        string                 `json:"type" binding:"required,oneof=like comment follow mention system custom invite join_request error"`
	Message     string                 `json:"message,omitempty" binding:"omitempty,max=500"`
	Title       string                 `json:"title,omitempty" binding:"omitempty,max=100"`
	Link        string                 `json:"link,omitempty" binding:"omitempty,max=500"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}
