package store

import (
	"context"
	"sync"
	"time"

	"github.com/duskfall/hollowvale/internal/game"
)

// MemorySnapshotStore is the in-memory test double for game.SnapshotStore,
// standing in for Redis the way the teacher's tests stand up a throwaway
// Postgres schema instead of mocking the driver.
type MemorySnapshotStore struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   map[string]map[string]bool
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		values: map[string][]byte{},
		sets:   map[string]map[string]bool{},
	}
}

var _ game.SnapshotStore = (*MemorySnapshotStore)(nil)

func (s *MemorySnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *MemorySnapshotStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
	return nil
}

func (s *MemorySnapshotStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemorySnapshotStore) SAdd(ctx context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[set] == nil {
		s.sets[set] = map[string]bool{}
	}
	s.sets[set][member] = true
	return nil
}

func (s *MemorySnapshotStore) SRem(ctx context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[set], member)
	return nil
}

func (s *MemorySnapshotStore) SMembers(ctx context.Context, set string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[set]))
	for m := range s.sets[set] {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemorySnapshotStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok, nil
}
