// Package idempotency replays responses of retried POST requests.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is what a key resolves to. A record that is not Completed marks a
// request still being processed.
type Record struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	Body        []byte `json:"body,omitempty"`
	Completed   bool   `json:"completed"`
}

// Store keeps idempotency records
type Store interface {
	// Reserve claims key for a new request. It returns nil when the claim
	// succeeded and the existing record otherwise.
	Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error)
	Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const keyPrefix = "usdc-bridge:idempotency:"

// RedisStore shares records between instances.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	pending, err := json.Marshal(Record{RequestHash: requestHash})
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pending, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		return s.Reserve(ctx, key, requestHash, ttl)
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// MemoryStore is the single-instance store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Reserve(_ context.Context, key, requestHash string, ttl time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		rec := e.rec
		return &rec, nil
	}
	s.entries[key] = memoryEntry{rec: Record{RequestHash: requestHash}, expiresAt: now.Add(ttl)}
	s.sweep(now)
	return nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{rec: rec, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// sweep drops expired entries; callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
