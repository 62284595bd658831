package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// RedisStore is a Store backed by Redis, shared across gateway replicas.
// Expiry is native: entries are written with SETEX-style TTLs. Reads fail
// open; any Redis error is logged and counted as a miss.
type RedisStore struct {
	client *redis.Client
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates a cache on an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		s.misses.Add(1)
		return nil, false
	}
	if err != nil {
		log.Printf("cache: get %q: %v", key, err)
		s.misses.Add(1)
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("cache: decode %q: %v", key, err)
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return &entry, true
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, key string, resp models.TeachResponse, ttl time.Duration) error {
	entry := models.CacheEntry{
		Response:  resp,
		CreatedAt: time.Now().UTC(),
		TTL:       ttl,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Invalidate implements Store with a SCAN/MATCH walk so large keyspaces
// are not blocked by a single KEYS call.
func (s *RedisStore) Invalidate(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	deleted := 0

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache invalidate: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("cache invalidate: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// Stats implements Store. Entries is the whole Redis keyspace size; the
// hit/miss counters are process-local.
func (s *RedisStore) Stats(ctx context.Context) models.CacheStats {
	hits := s.hits.Load()
	misses := s.misses.Load()
	stats := models.CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
		Total:   hits + misses,
	}
	if size, err := s.client.DBSize(ctx).Result(); err == nil {
		stats.Entries = size
	}
	return stats
}

// Close implements Store.
func (s *RedisStore) Close() error { return s.client.Close() }
