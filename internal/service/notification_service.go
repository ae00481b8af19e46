package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/huddle-chat/huddle/internal/model"
	"github.com/huddle-chat/huddle/internal/pkg/cache"
	apperrors "github.com/huddle-chat/huddle/internal/pkg/errors"
	"github.com/huddle-chat/huddle/internal/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const unreadCacheTTL = 5 * time.Minute

// NotificationService is the ledger surface: append via Create, list and
// flip read state per recipient. Unread counts are cached in Redis and
// invalidated on every write.
type NotificationService struct {
	notifRepo *repository.NotificationRepository
	redis     *redis.Client
	logger    *zap.Logger
}

func NewNotificationService(
	notifRepo *repository.NotificationRepository,
	redisClient *redis.Client,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		redis:     redisClient,
		logger:    logger,
	}
}

// CreateInput describes a notification to append. Message is optional;
// when empty the per-type template fills it in.
type CreateInput struct {
	SenderID    string
	SenderName  string
	RecipientID string
	Type        model.NotificationType
	Message     string
	Link        string
	Meta        model.Meta
}

// messageForType renders the default body for a notification type.
func messageForType(t model.NotificationType, senderName string) string {
	name := senderName
	if name == "" {
		name = "Someone"
	}
	switch t {
	case model.NotificationFollow:
		return fmt.Sprintf("%s started following you", name)
	case model.NotificationLike:
		return fmt.Sprintf("%s liked your post", name)
	case model.NotificationComment:
		return fmt.Sprintf("%s commented on your post", name)
	case model.NotificationMention:
		return fmt.Sprintf("%s mentioned you", name)
	case model.NotificationInvite:
		return fmt.Sprintf("%s invited you to a room", name)
	case model.NotificationJoinRequest:
		return fmt.Sprintf("%s requested to join your room", name)
	default:
		return "You have a new notification"
	}
}

// Create appends a notification record and invalidates the recipient's
// cached unread count.
func (s *NotificationService) Create(ctx context.Context, input *CreateInput) (*model.Notification, error) {
	if input.RecipientID == "" {
		return nil, apperrors.ErrValidation.WithDetails("recipient is required")
	}
	if input.Type == "" {
		input.Type = model.NotificationSystem
	}

	message := input.Message
	if message == "" {
		message = messageForType(input.Type, input.SenderName)
	}
	link := input.Link
	if link == "" {
		link = "#"
	}

	n := &model.Notification{
		RecipientID: input.RecipientID,
		Type:        input.Type,
		Message:     message,
		Link:        link,
		Meta:        input.Meta,
	}
	if input.SenderID != "" {
		n.SenderID = sql.NullString{String: input.SenderID, Valid: true}
	}

	if err := s.notifRepo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	s.invalidateUnread(ctx, input.RecipientID)

	return n, nil
}

// List returns the recipient's notifications, newest first
func (s *NotificationService) List(ctx context.Context, recipient Identity, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	notifications, err := s.notifRepo.ListByRecipient(ctx, recipient.UserID, limit)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	return notifications, nil
}

// MarkRead flips one notification to read. The repository scopes the
// update to the recipient, so a foreign ID reads as not found.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string, recipient Identity) error {
	if err := s.notifRepo.MarkRead(ctx, notificationID, recipient.UserID); err != nil {
		if err == repository.ErrNotificationNotFound {
			return apperrors.ErrNotificationNotFound
		}
		s.logger.Error("Failed to mark notification read", zap.Error(err))
		return apperrors.ErrInternal
	}

	s.invalidateUnread(ctx, recipient.UserID)
	return nil
}

// MarkAllRead flips every unread notification for the recipient
func (s *NotificationService) MarkAllRead(ctx context.Context, recipient Identity) (int64, error) {
	marked, err := s.notifRepo.MarkAllRead(ctx, recipient.UserID)
	if err != nil {
		s.logger.Error("Failed to mark all notifications read", zap.Error(err))
		return 0, apperrors.ErrInternal
	}

	s.invalidateUnread(ctx, recipient.UserID)
	return marked, nil
}

// CountUnread returns the recipient's unread count, served from Redis
// when warm. Cache failures fall through to the database.
func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	key := fmt.Sprintf(cache.KeyUnreadCount, userID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Result(); err == nil {
			if count, perr := strconv.Atoi(cached); perr == nil {
				return count, nil
			}
		}
	}

	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.Error(err))
		return 0, apperrors.ErrInternal
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, count, unreadCacheTTL).Err(); err != nil {
			s.logger.Warn("Failed to cache unread count", zap.Error(err))
		}
	}

	return count, nil
}

func (s *NotificationService) invalidateUnread(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(cache.KeyUnreadCount, userID)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("Failed to invalidate unread count cache",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
