// Package store holds the concrete adapters for the Game Engine's
// collaborator ports: a Redis-backed Snapshot Store, and Postgres-backed
// Replay Store and Room Registry.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/duskfall/hollowvale/internal/game"
)

// RedisSnapshotStore implements game.SnapshotStore over a redis.Client,
// spec §6.1's required operations (get/set/del/sAdd/sRem/sMembers/exists).
type RedisSnapshotStore struct {
	rdb *redis.Client
}

func NewRedisSnapshotStore(rdb *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb}
}

var _ game.SnapshotStore = (*RedisSnapshotStore)(nil)

func (s *RedisSnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *RedisSnapshotStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisSnapshotStore) Del(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisSnapshotStore) SAdd(ctx context.Context, set, member string) error {
	return s.rdb.SAdd(ctx, set, member).Err()
}

func (s *RedisSnapshotStore) SRem(ctx context.Context, set, member string) error {
	return s.rdb.SRem(ctx, set, member).Err()
}

func (s *RedisSnapshotStore) SMembers(ctx context.Context, set string) ([]string, error) {
	return s.rdb.SMembers(ctx, set).Result()
}

func (s *RedisSnapshotStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
