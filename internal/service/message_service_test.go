package service

import (
	"context"
	"strings"
	"testing"

	"github.com/huddle-chat/huddle/internal/model"
	apperrors "github.com/huddle-chat/huddle/internal/pkg/errors"
	"github.com/huddle-chat/huddle/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type messageFixture struct {
	svc      *MessageService
	roomRepo *repository.RoomRepository
	db       *sqlx.DB
	prefix   string
	room     *model.Room
	alice    Identity
	bob      Identity
}

func newMessageFixture(t *testing.T) (*messageFixture, func()) {
	t.Helper()

	db, prefix := setupTestDB(t)
	ctx := context.Background()

	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	svc := NewMessageService(messageRepo, roomRepo, zap.NewNop())

	alice := testIdentity(prefix, "alice")
	bob := testIdentity(prefix, "bob")

	room := createPublicRoom(t, roomRepo, prefix, alice.UserID)
	for _, id := range []Identity{alice, bob} {
		role := model.RoleMember
		if id.UserID == alice.UserID {
			role = model.RoleAdmin
		}
		if err := roomRepo.AddParticipant(ctx, &model.Participant{
			RoomID:   room.ID,
			UserID:   id.UserID,
			Username: id.Username,
			Role:     role,
		}); err != nil {
			t.Fatalf("Failed to add participant: %v", err)
		}
	}

	f := &messageFixture{
		svc:      svc,
		roomRepo: roomRepo,
		db:       db,
		prefix:   prefix,
		room:     room,
		alice:    alice,
		bob:      bob,
	}
	cleanup := func() {
		cleanupByPrefix(t, db, prefix)
		db.Close()
	}
	return f, cleanup
}

func TestMessageService_Send(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.room.ID, f.alice, "hello there", model.MessageTypeText)
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	if msg.ID == "" {
		t.Error("Expected message ID to be set")
	}

	// The room's lastMessage pointer advances with the send
	room, err := f.roomRepo.GetByID(ctx, f.room.ID)
	if err != nil {
		t.Fatalf("Failed to get room: %v", err)
	}
	if !room.LastMessageID.Valid || room.LastMessageID.String != msg.ID {
		t.Error("Expected last_message_id to track the new message")
	}
}

func TestMessageService_Send_NonParticipant(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	eve := testIdentity(f.prefix, "eve")
	_, err := f.svc.Send(context.Background(), f.room.ID, eve, "let me in", model.MessageTypeText)
	if err != apperrors.ErrNotParticipant {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}
}

func TestMessageService_Send_Validation(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := f.svc.Send(ctx, f.room.ID, f.alice, "   ", model.MessageTypeText); apperrors.GetHTTPStatus(err) != apperrors.ErrValidation.Code {
		t.Errorf("Expected validation error for blank content, got %v", err)
	}

	long := strings.Repeat("a", 5001)
	if _, err := f.svc.Send(ctx, f.room.ID, f.alice, long, model.MessageTypeText); apperrors.GetHTTPStatus(err) != apperrors.ErrValidation.Code {
		t.Errorf("Expected validation error for oversized content, got %v", err)
	}
}

func TestMessageService_List(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		if _, err := f.svc.Send(ctx, f.room.ID, f.alice, content, model.MessageTypeText); err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
	}

	messages, err := f.svc.List(ctx, f.room.ID, f.bob, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(messages) != 3 {
		t.Errorf("Expected 3 messages, got %d", len(messages))
	}

	// Outsiders cannot read, privileged callers can
	eve := testIdentity(f.prefix, "eve")
	if _, err := f.svc.List(ctx, f.room.ID, eve, 10, 0); err != apperrors.ErrNotParticipant {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}
	eve.Privileged = true
	if _, err := f.svc.List(ctx, f.room.ID, eve, 10, 0); err != nil {
		t.Errorf("Expected privileged read, got %v", err)
	}
}

func TestMessageService_Edit(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.room.ID, f.alice, "typo", model.MessageTypeText)
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	// Only the author may edit
	if _, err := f.svc.Edit(ctx, msg.ID, f.bob, "hijacked"); err != apperrors.ErrPermissionDenied {
		t.Errorf("Expected permission denied, got %v", err)
	}

	updated, err := f.svc.Edit(ctx, msg.ID, f.alice, "fixed")
	if err != nil {
		t.Fatalf("Failed to edit: %v", err)
	}
	if updated.Content != "fixed" || !updated.IsEdited {
		t.Error("Expected edited content with flag set")
	}
}

func TestMessageService_Delete_Permissions(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.room.ID, f.bob, "disposable", model.MessageTypeText)
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	// A plain member cannot delete someone else's message
	carol := testIdentity(f.prefix, "carol")
	if err := f.svc.Delete(ctx, msg.ID, carol); err != apperrors.ErrPermissionDenied {
		t.Errorf("Expected permission denied, got %v", err)
	}

	// A room admin can
	if err := f.svc.Delete(ctx, msg.ID, f.alice); err != nil {
		t.Fatalf("Failed to delete as admin: %v", err)
	}
	if err := f.svc.Delete(ctx, msg.ID, f.alice); err != apperrors.ErrMessageNotFound {
		t.Errorf("Expected not found on repeat delete, got %v", err)
	}
}

func TestMessageService_MarkAllRead(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Send(ctx, f.room.ID, f.alice, "unread", model.MessageTypeText); err != nil {
			t.Fatalf("Failed to send: %v", err)
		}
	}

	marked, err := f.svc.MarkAllRead(ctx, f.room.ID, f.bob)
	if err != nil {
		t.Fatalf("Failed to mark all read: %v", err)
	}
	if marked != 2 {
		t.Errorf("Expected 2 marked, got %d", marked)
	}

	marked, err = f.svc.MarkAllRead(ctx, f.room.ID, f.bob)
	if err != nil {
		t.Fatalf("Failed to mark all read twice: %v", err)
	}
	if marked != 0 {
		t.Errorf("Expected idempotent repeat, got %d", marked)
	}

	// Non-participants are rejected
	if _, err := f.svc.MarkAllRead(ctx, f.room.ID, testIdentity(f.prefix, "eve")); err != apperrors.ErrNotParticipant {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}
}

func TestMessageService_ReadReceipts(t *testing.T) {
	f, cleanup := newMessageFixture(t)
	defer cleanup()

	ctx := context.Background()

	msg, err := f.svc.Send(ctx, f.room.ID, f.alice, "receipt me", model.MessageTypeText)
	if err != nil {
		t.Fatalf("Failed to send: %v", err)
	}

	if _, err := f.svc.MarkAllRead(ctx, f.room.ID, f.bob); err != nil {
		t.Fatalf("Failed to mark read: %v", err)
	}

	receipts, err := f.svc.GetReadReceipts(ctx, msg.ID, f.alice)
	if err != nil {
		t.Fatalf("Failed to get receipts: %v", err)
	}
	// Sender's own receipt plus bob's
	if len(receipts) != 2 {
		t.Errorf("Expected 2 receipts, got %d", len(receipts))
	}
}
