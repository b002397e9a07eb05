package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces run entries in a shared Redis instance.
const KeyPrefix = "putsync:lines:"

// RedisStore is a Store backed by Redis. Expiry is enforced by Redis, so
// entries vanish on their own when the TTL runs out.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed line cache.
func NewRedisStore(rdb *redis.Client) (*RedisStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{rdb: rdb}, nil
}

// Get retrieves the entry for a run id.
func (s *RedisStore) Get(ctx context.Context, runID string) (*Entry, error) {
	data, err := s.rdb.Get(ctx, KeyPrefix+runID).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set stores an entry under a run id for the given TTL.
func (s *RedisStore) Set(ctx context.Context, runID string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.rdb.Set(ctx, KeyPrefix+runID, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the entry for a run id.
func (s *RedisStore) Delete(ctx context.Context, runID string) error {
	if err := s.rdb.Del(ctx, KeyPrefix+runID).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
