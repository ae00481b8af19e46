package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/huddle-chat/huddle/internal/metrics"
	"github.com/huddle-chat/huddle/internal/model"
	apperrors "github.com/huddle-chat/huddle/internal/pkg/errors"
	"github.com/huddle-chat/huddle/internal/presence"
	"github.com/huddle-chat/huddle/internal/repository"
	"go.uber.org/zap"
)

type RoomService struct {
	roomRepo    *repository.RoomRepository
	messageRepo *repository.MessageRepository
	presence    presence.Registry
	broadcaster Broadcaster
	dispatcher  *DispatchService
	logger      *zap.Logger
}

func NewRoomService(
	roomRepo *repository.RoomRepository,
	messageRepo *repository.MessageRepository,
	registry presence.Registry,
	dispatcher *DispatchService,
	logger *zap.Logger,
) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		presence:    registry,
		broadcaster: NopBroadcaster{},
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// SetBroadcaster wires in the live fanout path. The hub is constructed
// after the services, so this runs once during startup.
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateRoomInput represents room creation input
type CreateRoomInput struct {
	Name        string
	Description string
	Type        model.RoomType
	Category    string
	Icon        string
	Tags        []string
	Settings    model.RoomSettings
	Creator     Identity
}

// Create creates a room with the creator seeded as its only admin, emits
// the synthetic "created the room" system message, and announces the room
// on the global discovery feed.
func (s *RoomService) Create(ctx context.Context, input *CreateRoomInput) (*model.RoomDetail, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.ErrValidation.WithDetails("name is required")
	}

	if _, err := s.roomRepo.GetByName(ctx, name); err == nil {
		return nil, apperrors.ErrRoomNameExists
	} else if err != repository.ErrRoomNotFound {
		s.logger.Error("Failed to check room name", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	roomType := input.Type
	if roomType == "" {
		roomType = model.RoomTypePublic
	}

	maxParticipants := input.Settings.MaxParticipants
	if maxParticipants <= 0 {
		maxParticipants = model.DefaultMaxParticipants
	}
	if maxParticipants > model.MaxParticipantsCap {
		maxParticipants = model.MaxParticipantsCap
	}

	room := &model.Room{
		Name:            name,
		Type:            roomType,
		CreatedBy:       input.Creator.UserID,
		IsPrivate:       input.Settings.IsPrivate || roomType == model.RoomTypePrivate,
		RequireApproval: input.Settings.RequireApproval,
		MaxParticipants: maxParticipants,
		AllowInvites:    input.Settings.AllowInvites,
		Tags:            input.Tags,
	}
	if input.Description != "" {
		room.Description = sql.NullString{String: input.Description, Valid: true}
	}
	if input.Category != "" {
		room.Category = sql.NullString{String: input.Category, Valid: true}
	}
	if input.Icon != "" {
		room.Icon = sql.NullString{String: input.Icon, Valid: true}
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		if err == repository.ErrRoomAlreadyExists {
			return nil, apperrors.ErrRoomNameExists
		}
		s.logger.Error("Failed to create room", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	creator := &model.Participant{
		RoomID:   room.ID,
		UserID:   input.Creator.UserID,
		Username: input.Creator.Username,
		Role:     model.RoleAdmin,
	}
	if err := s.roomRepo.AddParticipant(ctx, creator); err != nil {
		s.logger.Error("Failed to add creator as participant", zap.Error(err))
		_ = s.roomRepo.SoftDelete(ctx, room.ID)
		return nil, apperrors.ErrInternal
	}

	// Synthetic system message announcing the room
	sysMsg := &model.Message{
		RoomID:     room.ID,
		SenderID:   input.Creator.UserID,
		SenderName: input.Creator.Username,
		Content:    fmt.Sprintf("%s created the room", input.Creator.Username),
		Type:       model.MessageTypeSystem,
	}
	if err := s.messageRepo.Create(ctx, sysMsg); err != nil {
		s.logger.Warn("Failed to create system message", zap.Error(err))
	} else if err := s.roomRepo.SetLastMessage(ctx, room.ID, sysMsg.ID); err != nil {
		s.logger.Warn("Failed to set last message", zap.Error(err))
	}

	detail := &model.RoomDetail{
		Room:         *room,
		MemberCount:  1,
		Participants: []*model.Participant{creator},
		LastMessage:  sysMsg,
	}

	s.logger.Info("Room created",
		zap.String("room_id", room.ID),
		zap.String("name", room.Name),
		zap.String("created_by", input.Creator.UserID),
	)

	// Room creation feeds global discovery, not a room channel
	s.broadcaster.BroadcastGlobal(EventRoomCreated, &RoomCreatedEvent{Room: detail})

	return detail, nil
}

// ListRoomsInput narrows a room listing
type ListRoomsInput struct {
	Search   string
	Category string
	Type     string
	SortBy   string
	Limit    int
	Offset   int
}

// List returns the rooms visible to the requester: all public rooms, rooms
// the requester belongs to or created, and every room for privileged
// callers. Each row carries the requester's relationship annotations.
func (s *RoomService) List(ctx context.Context, input *ListRoomsInput, requester Identity) ([]*model.RoomSummary, error) {
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rooms, err := s.roomRepo.List(ctx, &repository.ListFilter{
		RequesterID:    requester.UserID,
		Search:         input.Search,
		Category:       input.Category,
		Type:           input.Type,
		SortBy:         input.SortBy,
		IncludePrivate: requester.Privileged,
		Limit:          limit,
		Offset:         input.Offset,
	})
	if err != nil {
		s.logger.Error("Failed to list rooms", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	for _, r := range rooms {
		r.CanJoin = !r.IsParticipant && r.MemberCount < r.MaxParticipants
	}

	return rooms, nil
}

// Get retrieves a room with participants, member count, and (for admins)
// the join request queue. Private rooms are hidden from outsiders.
func (s *RoomService) Get(ctx context.Context, roomID string, requester Identity) (*model.RoomDetail, error) {
	room, err := s.getActiveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	participants, err := s.roomRepo.ListParticipants(ctx, roomID)
	if err != nil {
		s.logger.Error("Failed to list participants", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	isParticipant := false
	isAdmin := false
	for _, p := range participants {
		p.IsOnline = s.presence.IsOnline(p.UserID)
		if p.UserID == requester.UserID {
			isParticipant = true
			isAdmin = p.Role == model.RoleAdmin
		}
	}

	if room.Hidden() && !isParticipant && room.CreatedBy != requester.UserID && !requester.Privileged {
		return nil, apperrors.ErrForbidden
	}

	detail := &model.RoomDetail{
		Room:         *room,
		MemberCount:  len(participants),
		Participants: participants,
	}

	if isAdmin || room.CreatedBy == requester.UserID || requester.Privileged {
		requests, err := s.roomRepo.ListJoinRequests(ctx, roomID)
		if err != nil {
			s.logger.Error("Failed to list join requests", zap.Error(err))
			return nil, apperrors.ErrInternal
		}
		detail.JoinRequests = requests
	}

	if room.LastMessageID.Valid {
		if msg, err := s.messageRepo.GetByID(ctx, room.LastMessageID.String); err == nil {
			detail.LastMessage = msg
		}
	}

	return detail, nil
}

// UpdateRoomInput patches a fixed allow-list of fields; anything else a
// caller sends is ignored, not rejected.
type UpdateRoomInput struct {
	Name        *string
	Description *string
	Icon        *string
	Type        *string
	Category    *string

	// Individual settings keys
	IsPrivate       *bool
	RequireApproval *bool
	MaxParticipants *int
	AllowInvites    *bool
}

// Update patches a room. Only room admins and privileged callers may
// update.
func (s *RoomService) Update(ctx context.Context, roomID string, input *UpdateRoomInput, requester Identity) (*model.Room, error) {
	room, err := s.getActiveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAdmin(ctx, room, requester); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.ErrValidation.WithDetails("name cannot be empty")
		}
		room.Name = name
	}
	if input.Description != nil {
		room.Description = sql.NullString{String: *input.Description, Valid: *input.Description != ""}
	}
	if input.Icon != nil {
		room.Icon = sql.NullString{String: *input.Icon, Valid: *input.Icon != ""}
	}
	if input.Type != nil {
		switch model.RoomType(*input.Type) {
		case model.RoomTypePublic, model.RoomTypePrivate, model.RoomTypePremium, model.RoomTypeVIP:
			room.Type = model.RoomType(*input.Type)
		}
	}
	if input.Category != nil {
		room.Category = sql.NullString{String: *input.Category, Valid: *input.Category != ""}
	}
	if input.IsPrivate != nil {
		room.IsPrivate = *input.IsPrivate
	}
	if input.RequireApproval != nil {
		room.RequireApproval = *input.RequireApproval
	}
	if input.MaxParticipants != nil && *input.MaxParticipants > 0 {
		room.MaxParticipants = *input.MaxParticipants
		if room.MaxParticipants > model.MaxParticipantsCap {
			room.MaxParticipants = model.MaxParticipantsCap
		}
	}
	if input.AllowInvites != nil {
		room.AllowInvites = *input.AllowInvites
	}

	if err := s.roomRepo.Update(ctx, room); err != nil {
		if err == repository.ErrRoomAlreadyExists {
			return nil, apperrors.ErrRoomNameExists
		}
		s.logger.Error("Failed to update room", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	s.broadcaster.BroadcastToRoom(roomID, EventRoomUpdated, &RoomUpdatedEvent{Room: room})

	return room, nil
}

// SoftDelete deactivates a room; messages are kept
func (s *RoomService) SoftDelete(ctx context.Context, roomID string, requester Identity) error {
	room, err := s.getActiveRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if room.CreatedBy != requester.UserID {
		if err := s.requireAdmin(ctx, room, requester); err != nil {
			return err
		}
	}

	if err := s.roomRepo.SoftDelete(ctx, roomID); err != nil {
		if err == repository.ErrRoomNotFound {
			return apperrors.ErrRoomNotFound
		}
		s.logger.Error("Failed to soft delete room", zap.Error(err))
		return apperrors.ErrInternal
	}

	s.logger.Info("Room deactivated",
		zap.String("room_id", roomID),
		zap.String("deleted_by", requester.UserID),
	)

	return nil
}

// JoinStatus is the outcome of a join attempt
type JoinStatus string

const (
	JoinStatusJoined        JoinStatus = "joined"
	JoinStatusPending       JoinStatus = "pending"
	JoinStatusAlreadyMember JoinStatus = "already_member"
)

// JoinResult reports what a JoinRoom call did
type JoinResult struct {
	Status  JoinStatus         `json:"status"`
	Request *model.JoinRequest `json:"request,omitempty"`
}

// Join runs the membership state machine. Open rooms admit directly;
// private approval-gated rooms queue a request. Repeat calls are
// idempotent for both pending requesters and existing members, and a
// previously denied user gets their request reopened instead of an error.
func (s *RoomService) Join(ctx context.Context, roomID string, requester Identity) (*JoinResult, error) {
	room, err := s.getActiveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if _, err := s.roomRepo.GetParticipant(ctx, roomID, requester.UserID); err == nil {
		return &JoinResult{Status: JoinStatusAlreadyMember}, nil
	} else if err != repository.ErrNotParticipant {
		s.logger.Error("Failed to check participant", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	if room.NeedsApproval() && !requester.Privileged {
		return s.requestToJoin(ctx, room, requester)
	}

	participant := &model.Participant{
		RoomID:   roomID,
		UserID:   requester.UserID,
		Username: requester.Username,
		Role:     model.RoleMember,
	}
	if err := s.roomRepo.AddParticipant(ctx, participant); err != nil {
		switch err {
		case repository.ErrAlreadyParticipant:
			return &JoinResult{Status: JoinStatusAlreadyMember}, nil
		case repository.ErrRoomFull:
			return nil, apperrors.ErrRoomFull
		case repository.ErrRoomNotFound:
			return nil, apperrors.ErrRoomNotFound
		default:
			s.logger.Error("Failed to add participant", zap.Error(err))
			return nil, apperrors.ErrInternal
		}
	}

	metrics.JoinRequests.WithLabelValues("direct").Inc()

	s.broadcaster.BroadcastToRoom(roomID, EventUserJoined, &UserJoinedEvent{
		RoomID: roomID,
		UserID: requester.UserID,
	})

	return &JoinResult{Status: JoinStatusJoined}, nil
}

func (s *RoomService) requestToJoin(ctx context.Context, room *model.Room, requester Identity) (*JoinResult, error) {
	existing, err := s.roomRepo.GetJoinRequest(ctx, room.ID, requester.UserID)
	switch {
	case err == nil && existing.IsPending():
		// Second Join while pending: return the existing request, no new entry
		return &JoinResult{Status: JoinStatusPending, Request: existing}, nil

	case err == nil && existing.Status == model.JoinRequestDenied:
		reopened, rerr := s.roomRepo.ReopenJoinRequest(ctx, existing.ID)
		if rerr != nil {
			s.logger.Error("Failed to reopen join request", zap.Error(rerr))
			return nil, apperrors.ErrInternal
		}
		existing = reopened

	case err == nil:
		// Approved earlier but membership row is gone (left or was removed);
		// start a fresh cycle by reusing the row as pending.
		reopened, rerr := s.roomRepo.ReopenJoinRequest(ctx, existing.ID)
		if rerr != nil {
			s.logger.Error("Failed to reopen join request", zap.Error(rerr))
			return nil, apperrors.ErrInternal
		}
		existing = reopened

	case err == repository.ErrJoinRequestNotFound:
		existing = &model.JoinRequest{
			RoomID:   room.ID,
			UserID:   requester.UserID,
			Username: requester.Username,
		}
		if cerr := s.roomRepo.CreateJoinRequest(ctx, existing); cerr != nil {
			s.logger.Error("Failed to create join request", zap.Error(cerr))
			return nil, apperrors.ErrInternal
		}

	default:
		s.logger.Error("Failed to check join request", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	metrics.JoinRequests.WithLabelValues("pending").Inc()

	s.broadcaster.BroadcastToRoom(room.ID, EventJoinRequest, &JoinRequestEvent{
		RoomID: room.ID,
		UserID: requester.UserID,
	})

	// Let every room admin know, live or via push
	s.notifyAdmins(ctx, room, requester)

	return &JoinResult{Status: JoinStatusPending, Request: existing}, nil
}

func (s *RoomService) notifyAdmins(ctx context.Context, room *model.Room, requester Identity) {
	participants, err := s.roomRepo.ListParticipants(ctx, room.ID)
	if err != nil {
		s.logger.Warn("Failed to list participants for admin notify", zap.Error(err))
		return
	}

	for _, p := range participants {
		if p.Role != model.RoleAdmin {
			continue
		}
		_, err := s.dispatcher.Dispatch(ctx, &DispatchInput{
			SenderID:    requester.UserID,
			SenderName:  requester.Username,
			RecipientID: p.UserID,
			Type:        model.NotificationJoinRequest,
			Title:       room.Name,
			Body:        fmt.Sprintf("%s requested to join %s", requester.Username, room.Name),
			Meta: model.Meta{
				"room_id": room.ID,
			},
		})
		if err != nil {
			s.logger.Warn("Failed to dispatch join request notification",
				zap.String("admin_id", p.UserID),
				zap.Error(err),
			)
		}
	}
}

// RespondJoinRequest approves or denies a pending request. Only admins,
// the creator, or privileged callers may respond.
func (s *RoomService) RespondJoinRequest(ctx context.Context, roomID, requestID string, approve bool, requester Identity) (*model.JoinRequest, error) {
	room, err := s.getActiveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.CreatedBy != requester.UserID {
		if err := s.requireAdmin(ctx, room, requester); err != nil {
			return nil, err
		}
	}

	request, err := s.roomRepo.GetJoinRequestByID(ctx, requestID)
	if err != nil {
		if err == repository.ErrJoinRequestNotFound {
			return nil, apperrors.ErrBadRequest.WithDetails("unknown join request")
		}
		s.logger.Error("Failed to get join request", zap.Error(err))
		return nil, apperrors.ErrInternal
	}
	if request.RoomID != roomID {
		return nil, apperrors.ErrBadRequest.WithDetails("join request belongs to another room")
	}
	if !request.IsPending() {
		return nil, apperrors.ErrBadRequest.WithDetails("join request already responded")
	}

	status := model.JoinRequestDenied
	if approve {
		status = model.JoinRequestApproved
	}
	if err := s.roomRepo.SetJoinRequestStatus(ctx, request.ID, status); err != nil {
		s.logger.Error("Failed to set join request status", zap.Error(err))
		return nil, apperrors.ErrInternal
	}
	request.Status = status

	if approve {
		participant := &model.Participant{
			RoomID:   roomID,
			UserID:   request.UserID,
			Username: request.Username,
			Role:     model.RoleMember,
		}
		if err := s.roomRepo.AddParticipant(ctx, participant); err != nil && err != repository.ErrAlreadyParticipant {
			if err == repository.ErrRoomFull {
				return nil, apperrors.ErrRoomFull
			}
			s.logger.Error("Failed to add approved participant", zap.Error(err))
			return nil, apperrors.ErrInternal
		}
		metrics.JoinRequests.WithLabelValues("approved").Inc()
	} else {
		metrics.JoinRequests.WithLabelValues("denied").Inc()
	}

	s.broadcaster.BroadcastToRoom(roomID, EventJoinRequestResponse, &JoinRequestResponseEvent{
		RoomID:    roomID,
		RequestID: request.ID,
		Approved:  approve,
		UserID:    request.UserID,
	})

	verdict := "denied"
	if approve {
		verdict = "approved"
	}
	_, derr := s.dispatcher.Dispatch(ctx, &DispatchInput{
		SenderID:    requester.UserID,
		SenderName:  requester.Username,
		RecipientID: request.UserID,
		Type:        model.NotificationSystem,
		Title:       room.Name,
		Body:        fmt.Sprintf("Your request to join %s was %s", room.Name, verdict),
		Meta: model.Meta{
			"room_id":  roomID,
			"approved": approve,
		},
	})
	if derr != nil {
		s.logger.Warn("Failed to dispatch join response notification", zap.Error(derr))
	}

	return request, nil
}

// Leave removes the requester from the room
func (s *RoomService) Leave(ctx context.Context, roomID string, requester Identity) error {
	if _, err := s.getActiveRoom(ctx, roomID); err != nil {
		return err
	}

	if err := s.roomRepo.RemoveParticipant(ctx, roomID, requester.UserID); err != nil {
		if err == repository.ErrNotParticipant {
			return apperrors.ErrNotParticipant
		}
		s.logger.Error("Failed to remove participant", zap.Error(err))
		return apperrors.ErrInternal
	}

	return nil
}

// ListParticipants lists a room's participants with live presence
func (s *RoomService) ListParticipants(ctx context.Context, roomID string, requester Identity) ([]*model.Participant, error) {
	room, err := s.getActiveRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	participants, err := s.roomRepo.ListParticipants(ctx, roomID)
	if err != nil {
		s.logger.Error("Failed to list participants", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	if room.Hidden() && !requester.Privileged && room.CreatedBy != requester.UserID {
		isParticipant := false
		for _, p := range participants {
			if p.UserID == requester.UserID {
				isParticipant = true
				break
			}
		}
		if !isParticipant {
			return nil, apperrors.ErrForbidden
		}
	}

	for _, p := range participants {
		p.IsOnline = s.presence.IsOnline(p.UserID)
	}

	return participants, nil
}

func (s *RoomService) getActiveRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if err == repository.ErrRoomNotFound {
			return nil, apperrors.ErrRoomNotFound
		}
		s.logger.Error("Failed to get room", zap.Error(err))
		return nil, apperrors.ErrInternal
	}
	if !room.IsActive {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) requireAdmin(ctx context.Context, room *model.Room, requester Identity) error {
	if requester.Privileged {
		return nil
	}
	p, err := s.roomRepo.GetParticipant(ctx, room.ID, requester.UserID)
	if err != nil {
		if err == repository.ErrNotParticipant {
			return apperrors.ErrPermissionDenied
		}
		s.logger.Error("Failed to get participant", zap.Error(err))
		return apperrors.ErrInternal
	}
	if p.Role != model.RoleAdmin {
		return apperrors.ErrPermissionDenied
	}
	return nil
}
