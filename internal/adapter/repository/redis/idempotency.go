package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const inFlight = "\x00in-flight"

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.UniversalClient) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "numrent:idempotency:",
	}
}

// Reserve claims key with SETNX. If another request already holds it, the
// stored response is returned, or nil while that request is still running.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	reserved, err := s.client.SetNX(ctx, fullKey, inFlight, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if reserved {
		return true, nil, nil
	}

	stored, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		reserved, err = s.client.SetNX(ctx, fullKey, inFlight, ttl).Result()
		return reserved, nil, err
	}
	if err != nil {
		return false, nil, err
	}
	if string(stored) == inFlight {
		return false, nil, nil
	}

	return false, stored, nil
}

// Complete replaces the reservation with the final response.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, response, ttl).Err()
}

// Release drops a reservation so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
