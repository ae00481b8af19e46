package service

import (
	"context"

	"github.com/huddle-chat/huddle/internal/metrics"
	"github.com/huddle-chat/huddle/internal/model"
	"github.com/huddle-chat/huddle/internal/presence"
	"github.com/huddle-chat/huddle/internal/push"
	"github.com/huddle-chat/huddle/internal/repository"
	"go.uber.org/zap"
)

// DispatchChannel names which channel carried a notification to its
// recipient.
type DispatchChannel string

const (
	ChannelLive DispatchChannel = "live"
	ChannelPush DispatchChannel = "push"
	// ChannelNone: recipient offline and no push tokens registered. The
	// ledger record still exists; the recipient sees it on next login.
	ChannelNone DispatchChannel = "none"
)

// DispatchInput describes a notification to persist and deliver.
type DispatchInput struct {
	SenderID    string
	SenderName  string
	RecipientID string
	Type        model.NotificationType
	Title       string
	Body        string
	Link        string
	Meta        model.Meta
}

// DispatchResult reports what a dispatch did.
type DispatchResult struct {
	Notification  *model.Notification `json:"notification"`
	Channel       DispatchChannel     `json:"channel"`
	UnreadCount   int                 `json:"unread_count"`
	Delivered     int                 `json:"delivered"`
	TokenFailures int                 `json:"token_failures,omitempty"`
}

// DispatchService is the hybrid delivery pipeline: persist to the ledger
// first, then deliver over exactly one channel. Online recipients get a
// live frame on every active connection; offline recipients get a single
// multicast push across all their registered tokens. Live and push are
// mutually exclusive per dispatch.
type DispatchService struct {
	notifications *NotificationService
	presence      presence.Registry
	tokens        repository.TokenDirectory
	provider      push.Provider
	logger        *zap.Logger
}

func NewDispatchService(
	notifications *NotificationService,
	registry presence.Registry,
	tokens repository.TokenDirectory,
	provider push.Provider,
	logger *zap.Logger,
) *DispatchService {
	return &DispatchService{
		notifications: notifications,
		presence:      registry,
		tokens:        tokens,
		provider:      provider,
		logger:        logger,
	}
}

// Dispatch runs the pipeline. Persistence failure aborts the dispatch;
// everything after the ledger write is best-effort and degrades to the
// record alone.
func (s *DispatchService) Dispatch(ctx context.Context, input *DispatchInput) (*DispatchResult, error) {
	notification, err := s.notifications.Create(ctx, &CreateInput{
		SenderID:    input.SenderID,
		SenderName:  input.SenderName,
		RecipientID: input.RecipientID,
		Type:        input.Type,
		Message:     input.Body,
		Link:        input.Link,
		Meta:        input.Meta,
	})
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Notification: notification}

	// Fresh count including the record just written. A count failure is
	// not fatal: the badge will catch up on the next read.
	unread, err := s.notifications.CountUnread(ctx, input.RecipientID)
	if err != nil {
		s.logger.Warn("Failed to count unread during dispatch",
			zap.String("recipient_id", input.RecipientID),
			zap.Error(err),
		)
		unread = -1
	}
	result.UnreadCount = unread

	// Snapshot once; the same set decides the channel and receives the
	// frames, so a recipient connecting mid-dispatch cannot cause a
	// double delivery.
	conns := s.presence.ActiveConnections(input.RecipientID)

	if unread >= 0 {
		for _, c := range conns {
			c.Send(EventUnreadCount, &UnreadCountEvent{Count: unread})
		}
	}

	if len(conns) > 0 {
		for _, c := range conns {
			c.Send(EventNotification, notification)
		}
		result.Channel = ChannelLive
		result.Delivered = len(conns)
		metrics.DispatchOutcomes.WithLabelValues(string(ChannelLive)).Inc()
		return result, nil
	}

	return s.dispatchPush(ctx, input, notification, result)
}

func (s *DispatchService) dispatchPush(ctx context.Context, input *DispatchInput, notification *model.Notification, result *DispatchResult) (*DispatchResult, error) {
	tokens, err := s.tokens.GetPushTokens(ctx, input.RecipientID)
	if err != nil {
		s.logger.Warn("Failed to read push tokens",
			zap.String("recipient_id", input.RecipientID),
			zap.Error(err),
		)
		tokens = nil
	}

	// No tokens is a terminal, non-error outcome: the record waits in the
	// ledger for the recipient's next session.
	if len(tokens) == 0 {
		result.Channel = ChannelNone
		metrics.DispatchOutcomes.WithLabelValues(string(ChannelNone)).Inc()
		return result, nil
	}

	title := input.Title
	if title == "" {
		title = "Huddle"
	}

	multicast, err := s.provider.SendMulticast(ctx, tokens, title, notification.Message, map[string]string{
		"notification_id": notification.ID,
		"type":            string(notification.Type),
		"link":            notification.Link,
	})
	if err != nil {
		// The record is already durable; a provider outage only loses the
		// push leg. Failing the call would invite a retry that writes the
		// ledger record a second time.
		s.logger.Error("Push provider call failed",
			zap.String("recipient_id", input.RecipientID),
			zap.Int("tokens", len(tokens)),
			zap.Error(err),
		)
		metrics.PushTokenFailures.Add(float64(len(tokens)))
		result.Channel = ChannelPush
		result.TokenFailures = len(tokens)
		metrics.DispatchOutcomes.WithLabelValues(string(ChannelPush)).Inc()
		return result, nil
	}

	if multicast.FailureCount > 0 {
		metrics.PushTokenFailures.Add(float64(multicast.FailureCount))
		s.logger.Warn("Push delivered with per-token failures",
			zap.String("recipient_id", input.RecipientID),
			zap.Int("success", multicast.SuccessCount),
			zap.Int("failure", multicast.FailureCount),
		)
	}

	result.Channel = ChannelPush
	result.Delivered = multicast.SuccessCount
	result.TokenFailures = multicast.FailureCount
	metrics.DispatchOutcomes.WithLabelValues(string(ChannelPush)).Inc()

	return result, nil
}

// DispatchToMany fans one notification out to several recipients, each
// through its own full pipeline. Individual failures are logged and do
// not stop the rest.
func (s *DispatchService) DispatchToMany(ctx context.Context, recipientIDs []string, input *DispatchInput) []*DispatchResult {
	results := make([]*DispatchResult, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		per := *input
		per.RecipientID = id
		res, err := s.Dispatch(ctx, &per)
		if err != nil {
			s.logger.Warn("Dispatch failed for recipient",
				zap.String("recipient_id", id),
				zap.Error(err),
			)
			continue
		}
		results = append(results, res)
	}
	return results
}
