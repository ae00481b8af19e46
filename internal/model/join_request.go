package model

import (
	"database/sql"
	"time"
)

type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "pending"
	JoinRequestApproved JoinRequestStatus = "approved"
	JoinRequestDenied   JoinRequestStatus = "denied"
)

// JoinRequest is a membership application for an approval-gated room.
// One row per (room, user); a denied row is flipped back to pending by a
// fresh join attempt instead of growing a second entry.
type JoinRequest struct {
	ID          string            `db:"id" json:"id"`
	RoomID      string            `db:"room_id" json:"room_id"`
	UserID      string            `db:"user_id" json:"user_id"`
	Username    string            `db:"username" json:"username"`
	Status      JoinRequestStatus `db:"status" json:"status"`
	RequestedAt time.Time         `db:"requested_at" json:"requested_at"`
	RespondedAt sql.NullTime      `db:"responded_at" json:"responded_at,omitempty"`
}

// IsPending checks whether the request still awaits a response
func (jr *JoinRequest) IsPending() bool {
	return jr.Status == JoinRequestPending
}
