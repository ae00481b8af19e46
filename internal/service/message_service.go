package service

import (
	"context"

	"github.com/huddle-chat/huddle/internal/metrics"
	"github.com/huddle-chat/huddle/internal/model"
	apperrors "github.com/huddle-chat/huddle/internal/pkg/errors"
	"github.com/huddle-chat/huddle/internal/pkg/utils"
	"github.com/huddle-chat/huddle/internal/repository"
	"go.uber.org/zap"
)

type MessageService struct {
	messageRepo *repository.MessageRepository
	roomRepo    *repository.RoomRepository
	broadcaster Broadcaster
	logger      *zap.Logger
}

func NewMessageService(
	messageRepo *repository.MessageRepository,
	roomRepo *repository.RoomRepository,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		broadcaster: NopBroadcaster{},
		logger:      logger,
	}
}

// SetBroadcaster wires in the live fanout path, see RoomService.SetBroadcaster.
func (s *MessageService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Send persists a message, advances the room's lastMessage pointer, and
// fans it out to the room's live subscribers. Only participants may send.
func (s *MessageService) Send(ctx context.Context, roomID string, sender Identity, content string, msgType model.MessageType) (*model.Message, error) {
	content = utils.SanitizeString(content)
	v := utils.NewValidator()
	if !v.ValidateMessageContent("content", content) {
		return nil, apperrors.ErrValidation.WithDetails(v.Errors())
	}
	if msgType == "" {
		msgType = model.MessageTypeText
	}

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

	if _, err := s.roomRepo.GetParticipant(ctx, roomID, sender.UserID); err != nil {
		if err == repository.ErrNotParticipant {
			return nil, apperrors.ErrNotParticipant
		}
		s.logger.Error("Failed to check participant", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	msg := &model.Message{
		RoomID:     roomID,
		SenderID:   sender.UserID,
		SenderName: sender.Username,
		Content:    content,
		Type:       msgType,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to create message", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	// The message is committed at this point; a failed pointer update
	// only leaves lastMessage stale, so log and move on. The next send
	// repairs it.
	if err := s.roomRepo.SetLastMessage(ctx, roomID, msg.ID); err != nil {
		s.logger.Warn("Failed to update last message pointer",
			zap.String("room_id", roomID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}

	metrics.MessagesSent.WithLabelValues(string(msgType)).Inc()

	s.broadcaster.BroadcastToRoom(roomID, EventNewMessage, &NewMessageEvent{
		Message: msg,
		RoomID:  roomID,
	})

	return msg, nil
}

// List returns a room's messages, newest first. Participants only; the
// room itself must exist and be active.
func (s *MessageService) List(ctx context.Context, roomID string, requester Identity, limit, offset int) ([]*model.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

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

	if !requester.Privileged {
		if _, err := s.roomRepo.GetParticipant(ctx, roomID, requester.UserID); err != nil {
			if err == repository.ErrNotParticipant {
				return nil, apperrors.ErrNotParticipant
			}
			s.logger.Error("Failed to check participant", zap.Error(err))
			return nil, apperrors.ErrInternal
		}
	}

	messages, err := s.messageRepo.ListByRoom(ctx, roomID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list messages", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	return messages, nil
}

// Edit changes a message body. Only the author may edit; system messages
// cannot be edited.
func (s *MessageService) Edit(ctx context.Context, messageID string, requester Identity, content string) (*model.Message, error) {
	content = utils.SanitizeString(content)
	v := utils.NewValidator()
	if !v.ValidateMessageContent("content", content) {
		return nil, apperrors.ErrValidation.WithDetails(v.Errors())
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return nil, apperrors.ErrMessageNotFound
		}
		s.logger.Error("Failed to get message", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	if msg.SenderID != requester.UserID {
		return nil, apperrors.ErrPermissionDenied
	}
	if msg.IsSystem() {
		return nil, apperrors.ErrBadRequest.WithDetails("system messages cannot be edited")
	}

	updated, err := s.messageRepo.UpdateContent(ctx, messageID, content)
	if err != nil {
		s.logger.Error("Failed to update message", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	s.broadcaster.BroadcastToRoom(msg.RoomID, EventMessageEdited, &MessageEditedEvent{
		Message: updated,
		RoomID:  msg.RoomID,
	})

	return updated, nil
}

// Delete removes a message. Authors delete their own; room admins and
// privileged callers delete anyone's.
func (s *MessageService) Delete(ctx context.Context, messageID string, requester Identity) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return apperrors.ErrMessageNotFound
		}
		s.logger.Error("Failed to get message", zap.Error(err))
		return apperrors.ErrInternal
	}

	if msg.SenderID != requester.UserID && !requester.Privileged {
		p, err := s.roomRepo.GetParticipant(ctx, msg.RoomID, requester.UserID)
		if err != nil || p.Role != model.RoleAdmin {
			return apperrors.ErrPermissionDenied
		}
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		if err == repository.ErrMessageNotFound {
			return apperrors.ErrMessageNotFound
		}
		s.logger.Error("Failed to delete message", zap.Error(err))
		return apperrors.ErrInternal
	}

	s.broadcaster.BroadcastToRoom(msg.RoomID, EventMessageDeleted, &MessageDeletedEvent{
		MessageID: messageID,
		RoomID:    msg.RoomID,
	})

	return nil
}

// MarkAllRead records the requester as having read every message in the
// room they did not send. Calling it again is a no-op.
func (s *MessageService) MarkAllRead(ctx context.Context, roomID string, requester Identity) (int64, error) {
	if _, err := s.roomRepo.GetParticipant(ctx, roomID, requester.UserID); err != nil {
		if err == repository.ErrNotParticipant {
			return 0, apperrors.ErrNotParticipant
		}
		s.logger.Error("Failed to check participant", zap.Error(err))
		return 0, apperrors.ErrInternal
	}

	marked, err := s.messageRepo.MarkAllRead(ctx, roomID, requester.UserID)
	if err != nil {
		s.logger.Error("Failed to mark messages read", zap.Error(err))
		return 0, apperrors.ErrInternal
	}

	return marked, nil
}

// GetReadReceipts lists who has read a message
func (s *MessageService) GetReadReceipts(ctx context.Context, messageID string, requester Identity) ([]*model.ReadReceipt, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return nil, apperrors.ErrMessageNotFound
		}
		s.logger.Error("Failed to get message", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	if !requester.Privileged {
		if _, err := s.roomRepo.GetParticipant(ctx, msg.RoomID, requester.UserID); err != nil {
			if err == repository.ErrNotParticipant {
				return nil, apperrors.ErrNotParticipant
			}
			s.logger.Error("Failed to check participant", zap.Error(err))
			return nil, apperrors.ErrInternal
		}
	}

	receipts, err := s.messageRepo.GetReadReceipts(ctx, messageID)
	if err != nil {
		s.logger.Error("Failed to get read receipts", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	return receipts, nil
}
