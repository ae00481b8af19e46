package response

import (
	"time"

	"github.com/huddle-chat/huddle/internal/model"
)

// RoomResponse represents a room in listings
type RoomResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Type          string   `json:"type"`
	Category      string   `json:"category,omitempty"`
	Icon          string   `json:"icon,omitempty"`
	CreatedBy     string   `json:"created_by"`
	Tags          []string `json:"tags"`
	MemberCount   int      `json:"member_count"`
	MaxMembers    int      `json:"max_members"`
	IsPrivate     bool     `json:"is_private"`
	IsParticipant bool     `json:"is_participant"`
	IsAdmin       bool     `json:"is_admin"`
	CanJoin       bool     `json:"can_join"`
	CreatedAt     string   `json:"created_at"`
}

// NewRoomResponse creates a room response from a listing row
func NewRoomResponse(room *model.RoomSummary) *RoomResponse {
	return &RoomResponse{
		ID:            room.ID,
		Name:          room.Name,
		Description:   room.GetDescription(),
		Type:          string(room.Type),
		Category:      nullableString(room.Category.Valid, room.Category.String),
		Icon:          nullableString(room.Icon.Valid, room.Icon.String),
		CreatedBy:     room.CreatedBy,
		Tags:          room.Tags,
		MemberCount:   room.MemberCount,
		MaxMembers:    room.MaxParticipants,
		IsPrivate:     room.IsPrivate,
		IsParticipant: room.IsParticipant,
		IsAdmin:       room.IsAdmin,
		CanJoin:       room.CanJoin,
		CreatedAt:     room.CreatedAt.Format(time.RFC3339),
	}
}

// NewRoomListResponse converts listing rows
func NewRoomListResponse(rooms []*model.RoomSummary) []*RoomResponse {
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, NewRoomResponse(r))
	}
	return out
}

// ParticipantResponse represents a room participant
type ParticipantResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsOnline bool   `json:"is_online"`
	JoinedAt string `json:"joined_at"`
}

// NewParticipantResponse creates a participant response from model
func NewParticipantResponse(p *model.Participant) *ParticipantResponse {
	return &ParticipantResponse{
		UserID:   p.UserID,
		Username: p.Username,
		Role:     string(p.Role),
		IsOnline: p.IsOnline,
		JoinedAt: p.JoinedAt.Format(time.RFC3339),
	}
}

// NewParticipantListResponse converts participants
func NewParticipantListResponse(participants []*model.Participant) []*ParticipantResponse {
	out := make([]*ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, NewParticipantResponse(p))
	}
	return out
}

// JoinRequestResponse represents a pending or responded join request
type JoinRequestResponse struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
	RespondedAt string `json:"responded_at,omitempty"`
}

// NewJoinRequestResponse creates a join request response from model
func NewJoinRequestResponse(r *model.JoinRequest) *JoinRequestResponse {
	resp := &JoinRequestResponse{
		ID:          r.ID,
		RoomID:      r.RoomID,
		UserID:      r.UserID,
		Username:    r.Username,
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt.Format(time.RFC3339),
	}
	if r.RespondedAt.Valid {
		resp.RespondedAt = r.RespondedAt.Time.Format(time.RFC3339)
	}
	return resp
}

// NewJoinRequestListResponse converts join requests
func NewJoinRequestListResponse(requests []*model.JoinRequest) []*JoinRequestResponse {
	out := make([]*JoinRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, NewJoinRequestResponse(r))
	}
	return out
}

// RoomDetailResponse represents a full room view
type RoomDetailResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Type         string                 `json:"type"`
	Category     string                 `json:"category,omitempty"`
	Icon         string                 `json:"icon,omitempty"`
	CreatedBy    string                 `json:"created_by"`
	Tags         []string               `json:"tags"`
	Settings     model.RoomSettings     `json:"settings"`
	MemberCount  int                    `json:"member_count"`
	Admins       []string               `json:"admins"`
	Participants []*ParticipantResponse `json:"participants"`
	JoinRequests []*JoinRequestResponse `json:"join_requests,omitempty"`
	LastMessage  *MessageResponse       `json:"last_message,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

// NewRoomDetailResponse creates a detailed room response from model.
// Admins is derived from the participants at render time.
func NewRoomDetailResponse(room *model.RoomDetail) *RoomDetailResponse {
	resp := &RoomDetailResponse{
		ID:           room.ID,
		Name:         room.Name,
		Description:  room.GetDescription(),
		Type:         string(room.Type),
		Category:     nullableString(room.Category.Valid, room.Category.String),
		Icon:         nullableString(room.Icon.Valid, room.Icon.String),
		CreatedBy:    room.CreatedBy,
		Tags:         room.Tags,
		Settings:     room.Settings(),
		MemberCount:  room.MemberCount,
		Admins:       room.Admins(),
		Participants: NewParticipantListResponse(room.Participants),
		CreatedAt:    room.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    room.UpdatedAt.Format(time.RFC3339),
	}
	if len(room.JoinRequests) > 0 {
		resp.JoinRequests = NewJoinRequestListResponse(room.JoinRequests)
	}
	if room.LastMessage != nil {
		resp.LastMessage = NewMessageResponse(room.LastMessage)
	}
	return resp
}

func nullableString(valid bool, s string) string {
	if valid {
		return s
	}
	return ""
}
