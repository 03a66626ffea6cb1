package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/models"
)

func TestMemorySnapshotStoreGetSetDel(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySnapshotStore()

	raw, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	raw, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), raw)

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Del(ctx, "k"))
	exists, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemorySnapshotStoreSetIsolatesCallerBuffer(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySnapshotStore()

	buf := []byte("original")
	require.NoError(t, s.Set(ctx, "k", buf, 0))
	buf[0] = 'X'

	raw, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), raw, "Set must copy the caller's slice")
}

func TestMemorySnapshotStoreSets(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySnapshotStore()

	require.NoError(t, s.SAdd(ctx, "games:active", "a"))
	require.NoError(t, s.SAdd(ctx, "games:active", "b"))
	members, err := s.SMembers(ctx, "games:active")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	require.NoError(t, s.SRem(ctx, "games:active", "a"))
	members, err = s.SMembers(ctx, "games:active")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestMemoryRoomRegistryGetByIDAndNumber(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRoomRegistry()
	owner := uuid.New()
	room := &models.Room{
		ID:          uuid.New(),
		RoomNumber:  "ABC123",
		OwnerUserID: owner,
		Status:      models.RoomStatusWaiting,
		MaxPlayers:  4,
	}
	r.Put(room)

	byID, err := r.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.RoomNumber, byID.RoomNumber)

	byNumber, err := r.GetRoomByNumber(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, room.ID, byNumber.ID)

	_, err = r.GetRoomByNumber(ctx, "NOPE99")
	assert.Error(t, err)
}

func TestMemoryRoomRegistryGetRoomReturnsACopy(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRoomRegistry()
	room := &models.Room{ID: uuid.New(), Members: []models.Seat{{Seat: 1}}}
	r.Put(room)

	got, err := r.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	got.Members[0].Seat = 99

	again, err := r.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Members[0].Seat, "mutating a returned room must not leak into the registry")
}

func TestMemoryRoomRegistrySetPlayingAndMarkEnded(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRoomRegistry()
	room := &models.Room{ID: uuid.New(), Status: models.RoomStatusWaiting}
	r.Put(room)

	gameID := uuid.New()
	require.NoError(t, r.SetRoomPlaying(ctx, room.ID, gameID))
	got, err := r.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusPlaying, got.Status)
	require.NotNil(t, got.GameID)
	assert.Equal(t, gameID, *got.GameID)

	require.NoError(t, r.MarkRoomEnded(ctx, room.ID))
	got, err = r.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusEnded, got.Status)
}

func TestMemoryReplayStoreSaveReplay(t *testing.T) {
	ctx := context.Background()
	rs := NewMemoryReplayStore()

	replay := game.Replay{
		GameID:       uuid.New(),
		RoomID:       uuid.New(),
		OwnerUserIDs: []uuid.UUID{uuid.New(), uuid.New()},
		ResultSummary: "werewolves win",
	}
	id, err := rs.SaveReplay(ctx, replay)
	require.NoError(t, err)
	stored, ok := rs.Replays[id]
	require.True(t, ok)
	assert.Equal(t, replay.ResultSummary, stored.ResultSummary)
}
