package request

// CreateRoomRequest represents a room creation request
type CreateRoomRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=100"`
	Description string   `json:"description,omitempty" binding:"omitempty,max=500"`
	Type        string   `json:"type,omitempty" binding:"omitempty,oneof=public private premium vip"` // default: public
	Category    string   `json:"category,omitempty" binding:"omitempty,max=64"`
	Icon        string   `json:"icon,omitempty"`
	Tags        []string `json:"tags,omitempty" binding:"omitempty,max=10,dive,max=32"`

	IsPrivate       bool `json:"is_private,omitempty"`
	RequireApproval bool `json:"require_approval,omitempty"`
	MaxParticipants int  `json:"max_participants,omitempty" binding:"omitempty,min=2,max=5000"`
	AllowInvites    bool `json:"allow_invites,omitempty"`
}

// UpdateRoomRequest represents a room update request. Only the fields
// present are applied; unknown fields are ignored.
type UpdateRoomRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=500"`
	Icon        *string `json:"icon,omitempty"`
	Type        *string `json:"type,omitempty" binding:"omitempty,oneof=public private premium vip"`
	Category    *string `json:"category,omitempty" binding:"omitempty,max=64"`

	IsPrivate       *bool `json:"is_private,omitempty"`
	RequireApproval *bool `json:"require_approval,omitempty"`
	MaxParticipants *int  `json:"max_participants,omitempty" binding:"omitempty,min=2,max=5000"`
	AllowInvites    *bool `json:"allow_invites,omitempty"`
}

// RespondJoinRequest approves or denies a pending join request
type RespondJoinRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// ListRoomsQuery narrows a room listing
type ListRoomsQuery struct {
	Search   string `form:"search" binding:"omitempty,max=100"`
	Category string `form:"category" binding:"omitempty,max=64"`
	Type     string `form:"type" binding:"omitempty,oneof=public private premium vip"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=name created_at member_count"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}
