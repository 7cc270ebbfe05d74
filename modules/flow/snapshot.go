package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotTTL - wizard state older than this is discarded on restore
const SnapshotTTL = 24 * time.Hour

// Snapshot - persisted wizard state with its save time
type Snapshot struct {
	State   State     `json:"state"`
	SavedAt time.Time `json:"savedAt"`
}

// Stale - whether the snapshot has outlived the resume window
func (s *Snapshot) Stale(now time.Time) bool {
	return now.Sub(s.SavedAt) > SnapshotTTL
}

// SnapshotStore - explicit save/restore persistence for wizard sessions.
// Restore returns (nil, nil) when no usable snapshot exists.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap *Snapshot) error
	Restore(ctx context.Context, key string) (*Snapshot, error)
	Delete(ctx context.Context, key string) error
}

// MemorySnapshotStore - in-process SnapshotStore for development and tests
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]Snapshot)}
}

func (s *MemorySnapshotStore) Save(ctx context.Context, key string, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[key] = *snap
	return nil
}

func (s *MemorySnapshotStore) Restore(ctx context.Context, key string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snaps[key]
	if !ok {
		return nil, nil
	}
	if snap.Stale(time.Now()) {
		delete(s.snaps, key)
		return nil, nil
	}
	clone := snap
	return &clone, nil
}

func (s *MemorySnapshotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, key)
	return nil
}

// RedisSnapshotStore - SnapshotStore on Redis; the TTL doubles as the
// staleness window so expired sessions vanish on their own.
type RedisSnapshotStore struct {
	rdb *redis.Client
}

func NewRedisSnapshotStore(rdb *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{rdb: rdb}
}

func snapshotKey(key string) string {
	return "buyershow:flow:" + key
}

func (s *RedisSnapshotStore) Save(ctx context.Context, key string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(key), data, SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Restore(ctx context.Context, key string) (*Snapshot, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Stale(time.Now()) {
		return nil, nil
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, snapshotKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
