package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/metrics"
	"github.com/duskfall/hollowvale/internal/models"
	"github.com/duskfall/hollowvale/internal/store"
)

// recordingBroadcaster is a minimal Broadcaster double; the pump only cares
// that advanceGameOnTimeout runs, not what gets fanned out.
type recordingBroadcaster struct {
	mu    sync.Mutex
	count int
}

func (b *recordingBroadcaster) EmitRoom(roomID uuid.UUID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
}
func (b *recordingBroadcaster) EmitUser(userID uuid.UUID, event string, payload interface{}) {}

func newTickingGame(t *testing.T) (*game.Engine, uuid.UUID, *store.MemoryRoomRegistry) {
	t.Helper()
	ss := store.NewMemorySnapshotStore()
	rr := store.NewMemoryRoomRegistry()
	rs := store.NewMemoryReplayStore()
	bc := &recordingBroadcaster{}
	engine := game.NewEngine(ss, rr, bc, rs, game.NewRNG(1))

	owner := uuid.New()
	members := make([]models.Seat, 4)
	for i := range members {
		uid := uuid.New()
		if i == 0 {
			uid = owner
		}
		members[i] = models.Seat{Seat: i + 1, UserID: &uid, IsReady: true}
	}
	room := &models.Room{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      models.RoomStatusWaiting,
		MaxPlayers:  4,
		Members:     members,
		RoleConfig:  models.RoleConfig{Werewolf: 1},
		Timers:      models.Timers{NightSeconds: 1, DaySpeechSeconds: 1, DayVoteSeconds: 1, SettlementSeconds: 1},
	}
	rr.Put(room)

	ctx := context.Background()
	_, _, err := engine.StartGame(ctx, room.ID, owner)
	require.NoError(t, err)
	return engine, room.ID, rr
}

func TestPumpAdvancesStalledGamesOnTick(t *testing.T) {
	engine, roomID, rr := newTickingGame(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// The first night's deadline is the engine's fixed 60-second night-role
	// duration, not the room's 1-second timer; run the engine's clock two
	// minutes ahead so that deadline has already passed.
	engine.WithClock(func() time.Time { return time.Now().Add(2 * time.Minute) })

	pump := NewPump(engine, 20*time.Millisecond, m)
	ctx, cancel := context.WithCancel(context.Background())
	go pump.Run(ctx)

	// The passed night deadline should be advanced within a couple of ticks.
	require.Eventually(t, func() bool {
		room, err := rr.GetRoom(context.Background(), roomID)
		require.NoError(t, err)
		if room.GameID == nil {
			return false
		}
		pub, err := engine.GetGamePublicState(context.Background(), *room.GameID)
		require.NoError(t, err)
		return pub.Phase != models.PhaseNight
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	pump.Stop()
}

func TestPumpStopBlocksUntilCurrentTickDrains(t *testing.T) {
	engine, _, _ := newTickingGame(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	pump := NewPump(engine, 10*time.Millisecond, m)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pump.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		pump.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, true)
}
