package model

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypePremium RoomType = "premium"
	RoomTypeVIP     RoomType = "vip"
)

const (
	// DefaultMaxParticipants applies when a room is created without a limit.
	DefaultMaxParticipants = 1000
	// MaxParticipantsCap is the hard ceiling; larger requests are clamped.
	MaxParticipantsCap = 5000
)

type Room struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Description     sql.NullString `db:"description" json:"description,omitempty"`
	Type            RoomType       `db:"type" json:"type"`
	Category        sql.NullString `db:"category" json:"category,omitempty"`
	Icon            sql.NullString `db:"icon" json:"icon,omitempty"`
	CreatedBy       string         `db:"created_by" json:"created_by"`
	IsPrivate       bool           `db:"is_private" json:"is_private"`
	RequireApproval bool           `db:"require_approval" json:"require_approval"`
	MaxParticipants int            `db:"max_participants" json:"max_participants"`
	AllowInvites    bool           `db:"allow_invites" json:"allow_invites"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	LastMessageID   sql.NullString `db:"last_message_id" json:"last_message_id,omitempty"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// RoomSettings groups the mutable per-room behavior switches.
type RoomSettings struct {
	IsPrivate       bool `json:"is_private"`
	RequireApproval bool `json:"require_approval"`
	MaxParticipants int  `json:"max_participants"`
	AllowInvites    bool `json:"allow_invites"`
}

// Settings returns the room's settings view
func (r *Room) Settings() RoomSettings {
	return RoomSettings{
		IsPrivate:       r.IsPrivate,
		RequireApproval: r.RequireApproval,
		MaxParticipants: r.MaxParticipants,
		AllowInvites:    r.AllowInvites,
	}
}

// GetDescription returns description or empty string
func (r *Room) GetDescription() string {
	if r.Description.Valid {
		return r.Description.String
	}
	return ""
}

// NeedsApproval reports whether joining goes through the request queue
func (r *Room) NeedsApproval() bool {
	return r.IsPrivate && r.RequireApproval
}

// Hidden reports whether the room is withheld from non-members. The
// private type and the is_private setting can be toggled independently;
// either one hides the room, and listing and access checks must agree
// on that.
func (r *Room) Hidden() bool {
	return r.IsPrivate || r.Type == RoomTypePrivate
}

type ParticipantRole string

const (
	RoleAdmin     ParticipantRole = "admin"
	RoleModerator ParticipantRole = "moderator"
	RoleMember    ParticipantRole = "member"
)

type Participant struct {
	RoomID   string          `db:"room_id" json:"room_id"`
	UserID   string          `db:"user_id" json:"user_id"`
	Username string          `db:"username" json:"username"`
	Role     ParticipantRole `db:"role" json:"role"`
	JoinedAt time.Time       `db:"joined_at" json:"joined_at"`
	IsOnline bool            `db:"-" json:"is_online"`
}

// CanModerate checks if the participant can moderate (admin or moderator)
func (p *Participant) CanModerate() bool {
	return p.Role == RoleAdmin || p.Role == RoleModerator
}

// RoomSummary is a room row annotated with the requester's relationship,
// computed in the listing query itself so no second round trip is needed.
type RoomSummary struct {
	Room
	MemberCount   int  `db:"member_count" json:"member_count"`
	IsParticipant bool `db:"is_participant" json:"is_participant"`
	IsAdmin       bool `db:"is_admin" json:"is_admin"`
	CanJoin       bool `db:"-" json:"can_join"`
}

// RoomDetail includes participants and pending join requests
type RoomDetail struct {
	Room
	MemberCount  int            `json:"member_count"`
	Participants []*Participant `json:"participants"`
	JoinRequests []*JoinRequest `json:"join_requests,omitempty"`
	LastMessage  *Message       `json:"last_message,omitempty"`
}

// Admins is derived from participants; there is no separately stored
// admin set to fall out of sync.
func (d *RoomDetail) Admins() []string {
	var ids []string
	for _, p := range d.Participants {
		if p.Role == RoleAdmin {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// Moderators is derived from participants
func (d *RoomDetail) Moderators() []string {
	var ids []string
	for _, p := range d.Participants {
		if p.Role == RoleModerator {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}
