package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Receipt identifies an accepted dispatch. Re-submitting the same
// idempotency key within the TTL returns the same receipt.
type Receipt struct {
	ExecutionID    string `json:"executionId"`
	DispatchHandle string `json:"dispatchHandle"`
}

// IdempotencyStore reserves idempotency keys. Reserve stores the receipt
// under the key unless one is already present, and returns the receipt that
// holds the reservation along with whether this call created it. Release
// drops a reservation whose dispatch never happened, so the same key can be
// retried inside the TTL.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, receipt Receipt, ttl time.Duration) (Receipt, bool, error)
	Release(ctx context.Context, key string) error
}

const idempotencyKeyPrefix = "kora:idempotency:"

// RedisIdempotencyStore backs reservations with Redis SET NX, giving the
// dedup window atomicity across API replicas.
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore wraps a Redis client.
func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

// Reserve implements IdempotencyStore.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, receipt Receipt, ttl time.Duration) (Receipt, bool, error) {
	payload, err := json.Marshal(receipt)
	if err != nil {
		return Receipt{}, false, fmt.Errorf("failed to encode receipt: %w", err)
	}

	redisKey := idempotencyKeyPrefix + key

	// Two attempts: the second covers a reservation expiring between SetNX
	// and Get.
	for attempt := 0; attempt < 2; attempt++ {
		created, err := s.client.SetNX(ctx, redisKey, payload, ttl).Result()
		if err != nil {
			return Receipt{}, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}

		if created {
			return receipt, true, nil
		}

		stored, err := s.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}

		if err != nil {
			return Receipt{}, false, fmt.Errorf("failed to load existing reservation: %w", err)
		}

		var existing Receipt

		if err := json.Unmarshal([]byte(stored), &existing); err != nil {
			return Receipt{}, false, fmt.Errorf("failed to decode existing reservation: %w", err)
		}

		return existing, false, nil
	}

	return Receipt{}, false, fmt.Errorf("reservation for key %s expired twice while reading it", key)
}

// Release implements IdempotencyStore.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

// InMemoryIdempotencyStore is the process-local store for development and
// tests.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryReservation
}

type memoryReservation struct {
	receipt   Receipt
	expiresAt time.Time
}

// NewInMemoryIdempotencyStore creates an empty in-memory store.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{entries: make(map[string]memoryReservation)}
}

// Reserve implements IdempotencyStore.
func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string, receipt Receipt, ttl time.Duration) (Receipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if existing, found := s.entries[key]; found && now.Before(existing.expiresAt) {
		return existing.receipt, false, nil
	}

	s.entries[key] = memoryReservation{
		receipt:   receipt,
		expiresAt: now.Add(ttl),
	}

	return receipt, true, nil
}

// Release implements IdempotencyStore.
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}
