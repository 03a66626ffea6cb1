package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

// SnapshotStore is the port the engine uses for per-game runtime state, spec
// §6.1. The concrete adapter (internal/store/snapshot.go) is Redis-backed;
// tests wire an in-memory double instead.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	SAdd(ctx context.Context, set, member string) error
	SRem(ctx context.Context, set, member string) error
	SMembers(ctx context.Context, set string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Broadcaster is the fire-and-forget fan-out port, spec §6.3. Emit failures
// are swallowed by the adapter, never surfaced to the engine.
type Broadcaster interface {
	EmitRoom(roomID uuid.UUID, event string, payload interface{})
	EmitUser(userID uuid.UUID, event string, payload interface{})
}

// Replay is the durable record written at game end, spec §6.2.
type Replay struct {
	GameID        uuid.UUID      `json:"gameId"`
	RoomID        uuid.UUID      `json:"roomId"`
	RoomName      string         `json:"roomName"`
	OwnerUserIDs  []uuid.UUID    `json:"ownerUserIds"`
	CreatedAt     int64          `json:"createdAt"`
	DurationMs    int64          `json:"durationMs"`
	ResultSummary string         `json:"resultSummary"`
	Events        []models.Event `json:"events"`
}

// ReplayStore is the append-only document port for completed games.
type ReplayStore interface {
	SaveReplay(ctx context.Context, replay Replay) (uuid.UUID, error)
}

// RoomRegistry is the port onto durable room metadata, spec §3/§6.2.
type RoomRegistry interface {
	GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	SetRoomPlaying(ctx context.Context, roomID uuid.UUID, gameID uuid.UUID) error
	MarkRoomEnded(ctx context.Context, roomID uuid.UUID) error
}
