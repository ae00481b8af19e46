package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/huddle-chat/huddle/internal/model"
	"github.com/huddle-chat/huddle/internal/presence"
	"github.com/huddle-chat/huddle/internal/push"
	"github.com/huddle-chat/huddle/internal/repository"
	"go.uber.org/zap"
)

// fakeConn records every frame pushed at it.
type fakeConn struct {
	mu     sync.Mutex
	frames []frameRecord
}

type frameRecord struct {
	event   string
	payload interface{}
}

func (c *fakeConn) Send(event string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frameRecord{event: event, payload: payload})
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.event)
	}
	return out
}

// fakePushProvider records multicast calls and returns a canned result.
type fakePushProvider struct {
	mu     sync.Mutex
	calls  []pushCall
	result *push.MulticastResult
	err    error
}

type pushCall struct {
	tokens []string
	title  string
	body   string
	data   map[string]string
}

func (p *fakePushProvider) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*push.MulticastResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{tokens: tokens, title: title, body: body, data: data})
	if p.err != nil {
		return nil, p.err
	}
	if p.result != nil {
		return p.result, nil
	}
	return &push.MulticastResult{SuccessCount: len(tokens)}, nil
}

func (p *fakePushProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// fakeTokenDirectory serves tokens from a map.
type fakeTokenDirectory struct {
	tokens map[string][]string
	err    error
}

func (d *fakeTokenDirectory) GetPushTokens(ctx context.Context, userID string) ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.tokens[userID], nil
}

func newDispatchFixture(t *testing.T) (*DispatchService, *presence.ShardedRegistry, *fakePushProvider, *fakeTokenDirectory, string, func()) {
	t.Helper()

	db, prefix := setupTestDB(t)

	notifRepo := repository.NewNotificationRepository(db)
	notifService := NewNotificationService(notifRepo, nil, zap.NewNop())

	registry := presence.NewShardedRegistry()
	provider := &fakePushProvider{}
	tokens := &fakeTokenDirectory{tokens: map[string][]string{}}

	svc := NewDispatchService(notifService, registry, tokens, provider, zap.NewNop())

	cleanup := func() {
		cleanupByPrefix(t, db, prefix)
		db.Close()
	}
	return svc, registry, provider, tokens, prefix, cleanup
}

func TestDispatchService_LiveDelivery(t *testing.T) {
	svc, registry, provider, _, prefix, cleanup := newDispatchFixture(t)
	defer cleanup()

	recipient := prefix + "_bob"

	// Two devices online
	phone := &fakeConn{}
	laptop := &fakeConn{}
	registry.Register(recipient, phone)
	registry.Register(recipient, laptop)

	result, err := svc.Dispatch(context.Background(), &DispatchInput{
		SenderID:    prefix + "_alice",
		SenderName:  "alice",
		RecipientID: recipient,
		Type:        model.NotificationFollow,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if result.Channel != ChannelLive {
		t.Errorf("Expected live channel, got %s", result.Channel)
	}
	if result.Delivered != 2 {
		t.Errorf("Expected delivery to 2 connections, got %d", result.Delivered)
	}
	if result.UnreadCount != 1 {
		t.Errorf("Expected unread count 1, got %d", result.UnreadCount)
	}

	// Every device got the badge update and the notification frame
	for _, conn := range []*fakeConn{phone, laptop} {
		events := conn.events()
		if len(events) != 2 {
			t.Fatalf("Expected 2 frames per connection, got %d", len(events))
		}
		if events[0] != EventUnreadCount || events[1] != EventNotification {
			t.Errorf("Expected [%s %s], got %v", EventUnreadCount, EventNotification, events)
		}
	}

	// Live delivery never touches the push provider
	if provider.callCount() != 0 {
		t.Errorf("Expected no push calls, got %d", provider.callCount())
	}
}

func TestDispatchService_PushDelivery(t *testing.T) {
	svc, _, provider, tokens, prefix, cleanup := newDispatchFixture(t)
	defer cleanup()

	recipient := prefix + "_bob"
	tokens.tokens[recipient] = []string{"token-1", "token-2", "token-3"}
	provider.result = &push.MulticastResult{SuccessCount: 2, FailureCount: 1}

	result, err := svc.Dispatch(context.Background(), &DispatchInput{
		SenderID:    prefix + "_alice",
		SenderName:  "alice",
		RecipientID: recipient,
		Type:        model.NotificationLike,
		Title:       "Feed",
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if result.Channel != ChannelPush {
		t.Errorf("Expected push channel, got %s", result.Channel)
	}
	if result.Delivered != 2 {
		t.Errorf("Expected 2 delivered, got %d", result.Delivered)
	}
	if result.TokenFailures != 1 {
		t.Errorf("Expected 1 token failure, got %d", result.TokenFailures)
	}

	// A single multicast carries all tokens
	if provider.callCount() != 1 {
		t.Fatalf("Expected 1 push call, got %d", provider.callCount())
	}
	call := provider.calls[0]
	if len(call.tokens) != 3 {
		t.Errorf("Expected 3 tokens in multicast, got %d", len(call.tokens))
	}
	if call.title != "Feed" {
		t.Errorf("Expected title passthrough, got %q", call.title)
	}
	if call.body != "alice liked your post" {
		t.Errorf("Expected templated body, got %q", call.body)
	}
	if call.data["notification_id"] != result.Notification.ID {
		t.Error("Expected notification id in push data")
	}
}

func TestDispatchService_NoTokensIsTerminal(t *testing.T) {
	svc, _, provider, _, prefix, cleanup := newDispatchFixture(t)
	defer cleanup()

	// Offline, never enabled push
	result, err := svc.Dispatch(context.Background(), &DispatchInput{
		SenderID:    prefix + "_alice",
		SenderName:  "alice",
		RecipientID: prefix + "_bob",
		Type:        model.NotificationComment,
	})
	if err != nil {
		t.Fatalf("Expected no error for unreachable recipient, got %v", err)
	}

	if result.Channel != ChannelNone {
		t.Errorf("Expected none channel, got %s", result.Channel)
	}
	if result.Delivered != 0 {
		t.Errorf("Expected 0 delivered, got %d", result.Delivered)
	}
	if provider.callCount() != 0 {
		t.Errorf("Expected no push calls, got %d", provider.callCount())
	}

	// The ledger record exists regardless
	if result.Notification == nil || result.Notification.ID == "" {
		t.Fatal("Expected persisted notification")
	}
	list, err := svc.notifications.List(context.Background(), Identity{UserID: prefix + "_bob"}, 10)
	if err != nil {
		t.Fatalf("Failed to list notifications: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 ledger record, got %d", len(list))
	}
}

func TestDispatchService_ProviderFailure(t *testing.T) {
	svc, _, provider, tokens, prefix, cleanup := newDispatchFixture(t)
	defer cleanup()

	recipient := prefix + "_bob"
	tokens.tokens[recipient] = []string{"token-1"}
	provider.err = errors.New("gateway timeout")

	result, err := svc.Dispatch(context.Background(), &DispatchInput{
		SenderID:    prefix + "_alice",
		SenderName:  "alice",
		RecipientID: recipient,
		Type:        model.NotificationMention,
	})
	if err != nil {
		t.Fatalf("Expected provider outage tolerated, got %v", err)
	}

	// The record is durable; only the push leg is lost. Failing the call
	// here would let a retry write a second ledger record.
	if result.Channel != ChannelPush {
		t.Errorf("Expected channel %s, got %s", ChannelPush, result.Channel)
	}
	if result.Delivered != 0 {
		t.Errorf("Expected 0 delivered, got %d", result.Delivered)
	}
	if result.TokenFailures != 1 {
		t.Errorf("Expected all tokens counted as failed, got %d", result.TokenFailures)
	}

	list, lerr := svc.notifications.List(context.Background(), Identity{UserID: recipient}, 10)
	if lerr != nil {
		t.Fatalf("Failed to list notifications: %v", lerr)
	}
	if len(list) != 1 {
		t.Errorf("Expected persisted record despite push failure, got %d", len(list))
	}
}

func TestDispatchService_LiveWinsOverPush(t *testing.T) {
	svc, registry, provider, tokens, prefix, cleanup := newDispatchFixture(t)
	defer cleanup()

	recipient := prefix + "_bob"
	tokens.tokens[recipient] = []string{"token-1"}

	conn := &fakeConn{}
	registry.Register(recipient, conn)

	result, err := svc.Dispatch(context.Background(), &DispatchInput{
		SenderID:    prefix + "_alice",
		SenderName:  "alice",
		RecipientID: recipient,
		Type:        model.NotificationFollow,
	})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	// Tokens exist, but an online recipient gets live delivery only
	if result.Channel != ChannelLive {
		t.Errorf("Expected live channel, got %s", result.Channel)
	}
	if provider.callCount() != 0 {
		t.Errorf("Expected no push call for online recipient, got %d", provider.callCount())
	}
}

func TestDispatchService_DispatchToMany(t *testing.T) {
	svc, registry, _, tokens, prefix, cleanup := newDispatchFixture(t)
	defer cleanup()

	online := prefix + "_online"
	pushy := prefix + "_pushy"
	dark := prefix + "_dark"

	registry.Register(online, &fakeConn{})
	tokens.tokens[pushy] = []string{"token-1"}

	results := svc.DispatchToMany(context.Background(), []string{online, pushy, dark}, &DispatchInput{
		SenderID:   prefix + "_alice",
		SenderName: "alice",
		Type:       model.NotificationInvite,
	})

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	channels := map[string]DispatchChannel{}
	for _, r := range results {
		channels[r.Notification.RecipientID] = r.Channel
	}
	if channels[online] != ChannelLive {
		t.Errorf("Expected live for online recipient, got %s", channels[online])
	}
	if channels[pushy] != ChannelPush {
		t.Errorf("Expected push for token holder, got %s", channels[pushy])
	}
	if channels[dark] != ChannelNone {
		t.Errorf("Expected none for unreachable recipient, got %s", channels[dark])
	}
}
