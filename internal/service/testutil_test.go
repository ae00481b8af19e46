package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huddle-chat/huddle/internal/model"
	"github.com/huddle-chat/huddle/internal/repository"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var testCounter int64

func generateUniquePrefix() string {
	count := atomic.AddInt64(&testCounter, 1)
	return uuid.New().String()[:8] + "_" + time.Now().Format("150405") + "_" + string(rune(count%26+'a'))
}

// setupTestDB connects to the test database and hands out a unique prefix
// so parallel tests never touch each other's rows.
func setupTestDB(t *testing.T) (*sqlx.DB, string) {
	t.Helper()

	dsn := "host=localhost port=5432 user=postgres password=postgres dbname=huddle_test sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("Skipping test, could not connect to test database: %v", err)
	}

	return db, generateUniquePrefix()
}

// cleanupByPrefix removes only the rows this test created. Rooms cascade
// to participants, join requests, messages, and receipts.
func cleanupByPrefix(t *testing.T, db *sqlx.DB, prefix string) {
	t.Helper()

	ctx := context.Background()

	_, _ = db.ExecContext(ctx, "DELETE FROM notifications WHERE recipient_id LIKE $1 OR sender_id LIKE $1", prefix+"%")
	_, _ = db.ExecContext(ctx, "DELETE FROM rooms WHERE name LIKE $1", prefix+"%")
	_, _ = db.ExecContext(ctx, "DELETE FROM rooms WHERE created_by LIKE $1", prefix+"%")
}

func testIdentity(prefix, name string) Identity {
	return Identity{
		UserID:   prefix + "_" + name,
		Username: name,
	}
}

func createPublicRoom(t *testing.T, roomRepo *repository.RoomRepository, prefix, creatorID string) *model.Room {
	t.Helper()

	room := &model.Room{
		Name:            prefix + "_room",
		Type:            model.RoomTypePublic,
		CreatedBy:       creatorID,
		MaxParticipants: 100,
		AllowInvites:    true,
	}
	if err := roomRepo.Create(context.Background(), room); err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}
	return room
}
