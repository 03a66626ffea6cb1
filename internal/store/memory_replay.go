package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/game"
)

// MemoryReplayStore is the in-memory test double for game.ReplayStore.
type MemoryReplayStore struct {
	mu      sync.Mutex
	Replays map[uuid.UUID]game.Replay
}

func NewMemoryReplayStore() *MemoryReplayStore {
	return &MemoryReplayStore{Replays: map[uuid.UUID]game.Replay{}}
}

var _ game.ReplayStore = (*MemoryReplayStore)(nil)

func (m *MemoryReplayStore) SaveReplay(ctx context.Context, replay game.Replay) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.Replays[id] = replay
	return id, nil
}
