package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/models"
)

// PostgresRoomRegistry implements game.RoomRegistry over the `rooms` table,
// spec §6.2's document-store collection (jsonb columns stand in for the
// doc-store's schemaless `members`/`roleConfig`/`timers` fields). It also
// carries the room-lifecycle CRUD the Request Adapter needs ahead of
// startGame, and the waiting-room sweep supplementing spec §3's mention of a
// 120-second abandoned-room expiry, grounded on the teacher's
// `LifecycleManager.closeInactiveRooms`.
type PostgresRoomRegistry struct {
	pg *pgxpool.Pool
}

func NewPostgresRoomRegistry(pg *pgxpool.Pool) *PostgresRoomRegistry {
	return &PostgresRoomRegistry{pg: pg}
}

var _ game.RoomRegistry = (*PostgresRoomRegistry)(nil)

type roomRow struct {
	id          uuid.UUID
	roomNumber  string
	name        string
	ownerUserID uuid.UUID
	status      string
	maxPlayers  int
	members     json.RawMessage
	roleConfig  json.RawMessage
	timers      json.RawMessage
	gameID      *uuid.UUID
	createdAt   int64
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r roomRow
	if err := row.Scan(&r.id, &r.roomNumber, &r.name, &r.ownerUserID, &r.status, &r.maxPlayers,
		&r.members, &r.roleConfig, &r.timers, &r.gameID, &r.createdAt); err != nil {
		return nil, err
	}
	room := &models.Room{
		ID:          r.id,
		RoomNumber:  r.roomNumber,
		Name:        r.name,
		OwnerUserID: r.ownerUserID,
		Status:      models.RoomStatus(r.status),
		MaxPlayers:  r.maxPlayers,
		GameID:      r.gameID,
		CreatedAt:   r.createdAt,
	}
	if err := json.Unmarshal(r.members, &room.Members); err != nil {
		return nil, fmt.Errorf("corrupt room members: %w", err)
	}
	if err := json.Unmarshal(r.roleConfig, &room.RoleConfig); err != nil {
		return nil, fmt.Errorf("corrupt room role config: %w", err)
	}
	if err := json.Unmarshal(r.timers, &room.Timers); err != nil {
		return nil, fmt.Errorf("corrupt room timers: %w", err)
	}
	return room, nil
}

const roomColumns = `id, room_number, name, owner_user_id, status, max_players, members, role_config, timers, game_id, created_at`

func (s *PostgresRoomRegistry) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, roomID)
	room, err := scanRoom(row)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	return room, nil
}

func (s *PostgresRoomRegistry) GetRoomByNumber(ctx context.Context, roomNumber string) (*models.Room, error) {
	row := s.pg.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_number = $1`, roomNumber)
	room, err := scanRoom(row)
	if err != nil {
		return nil, fmt.Errorf("room not found: %w", err)
	}
	return room, nil
}

func (s *PostgresRoomRegistry) SetRoomPlaying(ctx context.Context, roomID, gameID uuid.UUID) error {
	_, err := s.pg.Exec(ctx, `
		UPDATE rooms SET status = $1, game_id = $2, updated_at = $3 WHERE id = $4
	`, models.RoomStatusPlaying, gameID, time.Now().UnixMilli(), roomID)
	return err
}

func (s *PostgresRoomRegistry) MarkRoomEnded(ctx context.Context, roomID uuid.UUID) error {
	_, err := s.pg.Exec(ctx, `
		UPDATE rooms SET status = $1, updated_at = $2 WHERE id = $3
	`, models.RoomStatusEnded, time.Now().UnixMilli(), roomID)
	return err
}

// CreateRoom seeds an empty, owner-seated waiting room.
func (s *PostgresRoomRegistry) CreateRoom(ctx context.Context, ownerUserID uuid.UUID, name string, maxPlayers int, roleConfig models.RoleConfig, timers models.Timers) (*models.Room, error) {
	seats := make([]models.Seat, maxPlayers)
	for i := range seats {
		seats[i] = models.Seat{Seat: i + 1}
	}
	seats[0] = models.Seat{Seat: 1, UserID: &ownerUserID, IsReady: false, IsAlive: true}

	membersJSON, _ := json.Marshal(seats)
	roleConfigJSON, _ := json.Marshal(roleConfig)
	timersJSON, _ := json.Marshal(timers)

	room := &models.Room{
		ID:          uuid.New(),
		RoomNumber:  generateRoomNumber(),
		Name:        name,
		OwnerUserID: ownerUserID,
		Status:      models.RoomStatusWaiting,
		MaxPlayers:  maxPlayers,
		Members:     seats,
		RoleConfig:  roleConfig,
		Timers:      timers,
		CreatedAt:   time.Now().UnixMilli(),
	}

	_, err := s.pg.Exec(ctx, `
		INSERT INTO rooms (id, room_number, name, owner_user_id, status, max_players, members, role_config, timers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, room.ID, room.RoomNumber, room.Name, room.OwnerUserID, room.Status, room.MaxPlayers,
		membersJSON, roleConfigJSON, timersJSON, room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

// JoinRoom seats userID in the first empty seat.
func (s *PostgresRoomRegistry) JoinRoom(ctx context.Context, roomID, userID uuid.UUID, nickname string) (*models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, fmt.Errorf("room is not waiting")
	}
	seated := false
	for i := range room.Members {
		if room.Members[i].UserID == nil {
			room.Members[i].UserID = &userID
			room.Members[i].Nickname = nickname
			room.Members[i].IsAlive = true
			seated = true
			break
		}
		if *room.Members[i].UserID == userID {
			return room, nil
		}
	}
	if !seated {
		return nil, fmt.Errorf("room is full")
	}
	return room, s.saveMembers(ctx, room)
}

func (s *PostgresRoomRegistry) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	for i := range room.Members {
		if room.Members[i].UserID != nil && *room.Members[i].UserID == userID {
			room.Members[i] = models.Seat{Seat: room.Members[i].Seat}
		}
	}
	return s.saveMembers(ctx, room)
}

func (s *PostgresRoomRegistry) SetReady(ctx context.Context, roomID, userID uuid.UUID, ready bool) error {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	for i := range room.Members {
		if room.Members[i].UserID != nil && *room.Members[i].UserID == userID {
			room.Members[i].IsReady = ready
		}
	}
	return s.saveMembers(ctx, room)
}

func (s *PostgresRoomRegistry) saveMembers(ctx context.Context, room *models.Room) error {
	membersJSON, err := json.Marshal(room.Members)
	if err != nil {
		return err
	}
	_, err = s.pg.Exec(ctx, `
		UPDATE rooms SET members = $1, updated_at = $2 WHERE id = $3
	`, membersJSON, time.Now().UnixMilli(), room.ID)
	return err
}

func (s *PostgresRoomRegistry) ListWaitingRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := s.pg.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE status = $1 ORDER BY created_at DESC LIMIT 50`, models.RoomStatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			continue
		}
		out = append(out, *room)
	}
	return out, rows.Err()
}

// SweepExpiredWaitingRooms deletes any waiting room whose last activity exceeds
// expiry, spec §3's lifecycle note generalized per SPEC_FULL's supplemented
// features section. Returns the swept room ids so the caller can broadcast
// `room:dissolved`.
func (s *PostgresRoomRegistry) SweepExpiredWaitingRooms(ctx context.Context, expiry time.Duration) ([]uuid.UUID, error) {
	cutoff := time.Now().Add(-expiry).UnixMilli()
	rows, err := s.pg.Query(ctx, `
		SELECT id FROM rooms WHERE status = $1 AND updated_at < $2
	`, models.RoomStatusWaiting, cutoff)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, err := s.pg.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// generateRoomNumber produces the 4-digit display code spec.md §3 pins down
// for Room.roomNumber (unlike the teacher's 6-character alphanumeric
// generateRoomCode, which backs an id space, not a literal UI-facing field).
func generateRoomNumber() string {
	return fmt.Sprintf("%04d", rand.IntN(10000))
}
