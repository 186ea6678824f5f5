package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrIdempotencyInProgress means another request holding the same key has
// not finished yet.
var ErrIdempotencyInProgress = errors.New("request with this idempotency key is still in progress")

// StoredResponse is a replayable HTTP response.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyStore remembers responses by client-supplied key.
//
// Begin claims key and returns nil when the caller should execute the request,
// or the stored response when it already completed. Complete records the
// outcome; Abandon releases the claim so the client may retry.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*StoredResponse, error)
	Complete(ctx context.Context, key string, resp StoredResponse) error
	Abandon(ctx context.Context, key string) error
}

const (
	idempotencyKeyPrefix = "settlement:idempotency:"
	pendingMarker        = "pending"
)

type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (*StoredResponse, error) {
	redisKey := idempotencyKeyPrefix + key
	claimed, err := s.client.SetNX(ctx, redisKey, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SetNX and Get; treat as in progress so the client retries.
		return nil, ErrIdempotencyInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if raw == pendingMarker {
		return nil, ErrIdempotencyInProgress
	}

	var resp StoredResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stored response: %w", err)
	}
	return &resp, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode stored response: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, body, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// MemoryIdempotencyStore is the in-process variant used without Redis.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryIdempotencyEntry

	nextSweep time.Time
}

type memoryIdempotencyEntry struct {
	resp      *StoredResponse
	expiresAt time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration, now func() time.Time) *MemoryIdempotencyStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryIdempotencyStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memoryIdempotencyEntry),
	}
}

func (s *MemoryIdempotencyStore) Begin(_ context.Context, key string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		if e.resp == nil {
			return nil, ErrIdempotencyInProgress
		}
		resp := *e.resp
		return &resp, nil
	}
	s.entries[key] = memoryIdempotencyEntry{expiresAt: now.Add(s.ttl)}
	return nil, nil
}

// sweep drops expired entries at most once per ttl. Callers hold s.mu.
func (s *MemoryIdempotencyStore) sweep(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryIdempotencyEntry{resp: &resp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Abandon(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
