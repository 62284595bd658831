package cache

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// MemoryStore is an in-process Store. Entries expire on read; there is no
// background sweeper, matching the access pattern of a request cache where
// stale keys are either re-requested or harmless.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	hits    atomic.Int64
	misses  atomic.Int64
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]models.CacheEntry),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*models.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if entry.Expired(s.now()) {
		delete(s.entries, key)
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return &entry, true
}

// Put implements Store. A later write for the same key replaces the whole
// entry.
func (s *MemoryStore) Put(_ context.Context, key string, resp models.TeachResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = models.CacheEntry{
		Response:  resp,
		CreatedAt: s.now(),
		TTL:       ttl,
	}
	return nil
}

// Invalidate implements Store using glob matching on keys.
func (s *MemoryStore) Invalidate(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return deleted, err
		}
		if ok {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) models.CacheStats {
	s.mu.RLock()
	entries := int64(len(s.entries))
	s.mu.RUnlock()

	hits := s.hits.Load()
	misses := s.misses.Load()
	return models.CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
		Total:   hits + misses,
		Entries: entries,
	}
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
