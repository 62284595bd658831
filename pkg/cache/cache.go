// Package cache maps normalized request fingerprints to previously
// computed teaching responses. Caching is an optimization, not a
// correctness requirement: a broken store degrades to misses and dropped
// writes, never to a failed request.
package cache

import (
	"context"
	"time"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// Store is the response cache contract. Get reports a miss for expired
// entries and for any underlying read failure; it also maintains the
// hit/miss counters returned by Stats.
type Store interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, bool)
	Put(ctx context.Context, key string, resp models.TeachResponse, ttl time.Duration) error
	// Invalidate deletes entries whose key matches a glob pattern such as
	// "teaching:math:*" and returns the number removed.
	Invalidate(ctx context.Context, pattern string) (int, error)
	Stats(ctx context.Context) models.CacheStats
	Close() error
}

// hitRate guards the division by zero before any lookups have happened.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}
