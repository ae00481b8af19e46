package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationLike        NotificationType = "like"
	NotificationComment     NotificationType = "comment"
	NotificationFollow      NotificationType = "follow"
	NotificationMention     NotificationType = "mention"
	NotificationSystem      NotificationType = "system"
	NotificationCustom      NotificationType = "custom"
	NotificationInvite      NotificationType = "invite"
	NotificationJoinRequest NotificationType = "join_request"
	NotificationError       NotificationType = "error"
)

// Meta is the open key-value bag carried by a notification (room id,
// post id and similar client payload). Stored as JSONB.
type Meta map[string]interface{}

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Meta) Scan(src interface{}) error {
	if src == nil {
		*m = Meta{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported meta type %T", src)
	}
}

// GetString returns a string value from the bag, or "" when absent.
func (m Meta) GetString(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

type Notification struct {
	ID          string           `db:"id" json:"id"`
	SenderID    sql.NullString   `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	Type        NotificationType `db:"type" json:"type"`
	Message     string           `db:"message" json:"message"`
	Link        string           `db:"link" json:"link"`
	Meta        Meta             `db:"meta" json:"meta"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// GetSenderID returns sender id or empty string
func (n *Notification) GetSenderID() string {
	if n.SenderID.Valid {
		return n.SenderID.String
	}
	return ""
}
