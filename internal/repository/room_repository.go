package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/huddle-chat/huddle/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomAlreadyExists   = errors.New("room already exists")
	ErrNotParticipant      = errors.New("not a room participant")
	ErrAlreadyParticipant  = errors.New("already a room participant")
	ErrRoomFull            = errors.New("room is full")
	ErrJoinRequestNotFound = errors.New("join request not found")
)

type RoomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create creates a new room
func (r *RoomRepository) Create(ctx context.Context, room *model.Room) error {
	query := `
		INSERT INTO rooms (name, description, type, category, icon, created_by,
			is_private, require_approval, max_participants, allow_invites, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_active, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		room.Name,
		room.Description,
		room.Type,
		room.Category,
		room.Icon,
		room.CreatedBy,
		room.IsPrivate,
		room.RequireApproval,
		room.MaxParticipants,
		room.AllowInvites,
		pq.Array(room.Tags),
	).Scan(&room.ID, &room.IsActive, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrRoomAlreadyExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	query := `SELECT * FROM rooms WHERE id = $1`

	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	return &room, nil
}

// GetByName retrieves a room by its trimmed name
func (r *RoomRepository) GetByName(ctx context.Context, name string) (*model.Room, error) {
	var room model.Room
	query := `SELECT * FROM rooms WHERE name = $1`

	if err := r.db.GetContext(ctx, &room, query, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room by name: %w", err)
	}

	return &room, nil
}

// Update writes the patchable room columns
func (r *RoomRepository) Update(ctx context.Context, room *model.Room) error {
	query := `
		UPDATE rooms
		SET name = $2, description = $3, type = $4, category = $5, icon = $6,
			is_private = $7, require_approval = $8, max_participants = $9,
			allow_invites = $10, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		room.ID,
		room.Name,
		room.Description,
		room.Type,
		room.Category,
		room.Icon,
		room.IsPrivate,
		room.RequireApproval,
		room.MaxParticipants,
		room.AllowInvites,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrRoomAlreadyExists
		}
		return fmt.Errorf("failed to update room: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRoomNotFound
	}

	return nil
}

// SoftDelete marks a room inactive; messages are kept
func (r *RoomRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE rooms SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete room: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRoomNotFound
	}

	return nil
}

// SetLastMessage records the most recent message on the room. Idempotent
// overwrite; retried safely if the caller repeats the post-commit step.
func (r *RoomRepository) SetLastMessage(ctx context.Context, roomID, messageID string) error {
	query := `UPDATE rooms SET last_message_id = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, roomID, messageID); err != nil {
		return fmt.Errorf("failed to set last message: %w", err)
	}
	return nil
}

// ListFilter narrows and orders a room listing
type ListFilter struct {
	RequesterID    string
	Search         string
	Category       string
	Type           string
	SortBy         string
	IncludePrivate bool // privileged requesters see private rooms too
	Limit          int
	Offset         int
}

var roomSortColumns = map[string]string{
	"created_at":   "r.created_at DESC",
	"updated_at":   "r.updated_at DESC",
	"name":         "r.name ASC",
	"member_count": "member_count DESC",
}

// List returns active rooms visible to the requester, each annotated with
// the requester's relationship in the same query.
func (r *RoomRepository) List(ctx context.Context, filter *ListFilter) ([]*model.RoomSummary, error) {
	orderBy, ok := roomSortColumns[filter.SortBy]
	if !ok {
		orderBy = roomSortColumns["updated_at"]
	}

	query := fmt.Sprintf(`
		SELECT r.*,
			(SELECT COUNT(*) FROM room_participants rp WHERE rp.room_id = r.id) AS member_count,
			EXISTS(SELECT 1 FROM room_participants rp WHERE rp.room_id = r.id AND rp.user_id = $1) AS is_participant,
			EXISTS(SELECT 1 FROM room_participants rp WHERE rp.room_id = r.id AND rp.user_id = $1 AND rp.role = 'admin') AS is_admin
		FROM rooms r
		WHERE r.is_active = true
			AND ((NOT r.is_private AND r.type <> 'private')
				OR r.created_by = $1
				OR $2
				OR EXISTS(SELECT 1 FROM room_participants rp WHERE rp.room_id = r.id AND rp.user_id = $1))
			AND ($3 = '' OR r.name ILIKE '%%' || $3 || '%%' OR r.description ILIKE '%%' || $3 || '%%')
			AND ($4 = '' OR r.category = $4)
			AND ($5 = '' OR r.type = $5)
		ORDER BY %s
		LIMIT $6 OFFSET $7`, orderBy)

	var rooms []*model.RoomSummary
	err := r.db.SelectContext(ctx, &rooms, query,
		filter.RequesterID,
		filter.IncludePrivate,
		filter.Search,
		filter.Category,
		filter.Type,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	return rooms, nil
}

// AddParticipant adds a user to a room, enforcing the participant cap.
// The room row is locked for the duration so concurrent joins serialize
// on the capacity check instead of both passing it.
func (r *RoomRepository) AddParticipant(ctx context.Context, p *model.Participant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxParticipants int
	lockQuery := `SELECT max_participants FROM rooms WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &maxParticipants, lockQuery, p.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to lock room: %w", err)
	}

	var memberCount int
	countQuery := `SELECT COUNT(*) FROM room_participants WHERE room_id = $1`
	if err := tx.GetContext(ctx, &memberCount, countQuery, p.RoomID); err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	if memberCount >= maxParticipants {
		return ErrRoomFull
	}

	query := `
		INSERT INTO room_participants (room_id, user_id, username, role)
		VALUES ($1, $2, $3, $4)
		RETURNING joined_at`

	err = tx.QueryRowxContext(ctx, query, p.RoomID, p.UserID, p.Username, p.Role).Scan(&p.JoinedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyParticipant
		}
		return fmt.Errorf("failed to add participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit participant: %w", err)
	}

	return nil
}

// GetParticipant retrieves a room membership row
func (r *RoomRepository) GetParticipant(ctx context.Context, roomID, userID string) (*model.Participant, error) {
	var p model.Participant
	query := `SELECT * FROM room_participants WHERE room_id = $1 AND user_id = $2`

	if err := r.db.GetContext(ctx, &p, query, roomID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	return &p, nil
}

// ListParticipants lists a room's participants
func (r *RoomRepository) ListParticipants(ctx context.Context, roomID string) ([]*model.Participant, error) {
	query := `SELECT * FROM room_participants WHERE room_id = $1 ORDER BY joined_at ASC`

	var participants []*model.Participant
	if err := r.db.SelectContext(ctx, &participants, query, roomID); err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return participants, nil
}

// RemoveParticipant removes a user from a room
func (r *RoomRepository) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	query := `DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotParticipant
	}

	return nil
}

// CountParticipants returns the live member count; memberCount is always
// derived from this, never stored.
func (r *RoomRepository) CountParticipants(ctx context.Context, roomID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM room_participants WHERE room_id = $1`

	if err := r.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	return count, nil
}

// CreateJoinRequest inserts a pending request for (room, user)
func (r *RoomRepository) CreateJoinRequest(ctx context.Context, jr *model.JoinRequest) error {
	query := `
		INSERT INTO room_join_requests (room_id, user_id, username, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, status, requested_at`

	err := r.db.QueryRowxContext(ctx, query, jr.RoomID, jr.UserID, jr.Username).
		Scan(&jr.ID, &jr.Status, &jr.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create join request: %w", err)
	}
	return nil
}

// GetJoinRequest retrieves the (room, user) request row if one exists
func (r *RoomRepository) GetJoinRequest(ctx context.Context, roomID, userID string) (*model.JoinRequest, error) {
	var jr model.JoinRequest
	query := `SELECT * FROM room_join_requests WHERE room_id = $1 AND user_id = $2`

	if err := r.db.GetContext(ctx, &jr, query, roomID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJoinRequestNotFound
		}
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}

	return &jr, nil
}

// GetJoinRequestByID retrieves a request by its identity
func (r *RoomRepository) GetJoinRequestByID(ctx context.Context, id string) (*model.JoinRequest, error) {
	var jr model.JoinRequest
	query := `SELECT * FROM room_join_requests WHERE id = $1`

	if err := r.db.GetContext(ctx, &jr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJoinRequestNotFound
		}
		return nil, fmt.Errorf("failed to get join request by id: %w", err)
	}

	return &jr, nil
}

// ListJoinRequests lists a room's requests oldest first, so positional
// reads stay stable as rows are only ever status-mutated.
func (r *RoomRepository) ListJoinRequests(ctx context.Context, roomID string) ([]*model.JoinRequest, error) {
	query := `SELECT * FROM room_join_requests WHERE room_id = $1 ORDER BY requested_at ASC`

	var requests []*model.JoinRequest
	if err := r.db.SelectContext(ctx, &requests, query, roomID); err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}

	return requests, nil
}

// SetJoinRequestStatus mutates a request's status in place
func (r *RoomRepository) SetJoinRequestStatus(ctx context.Context, id string, status model.JoinRequestStatus) error {
	query := `UPDATE room_join_requests SET status = $2, responded_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set join request status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrJoinRequestNotFound
	}

	return nil
}

// ReopenJoinRequest flips a responded request back to pending for a fresh
// join attempt. The (room, user) row is reused, never duplicated. Returns
// the refreshed row.
func (r *RoomRepository) ReopenJoinRequest(ctx context.Context, id string) (*model.JoinRequest, error) {
	var jr model.JoinRequest
	query := `
		UPDATE room_join_requests
		SET status = 'pending', requested_at = NOW(), responded_at = NULL
		WHERE id = $1 AND status <> 'pending'
		RETURNING *`

	if err := r.db.GetContext(ctx, &jr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJoinRequestNotFound
		}
		return nil, fmt.Errorf("failed to reopen join request: %w", err)
	}

	return &jr, nil
}
