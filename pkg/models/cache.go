package models

import "time"

// CacheEntry stores a previously computed teaching response. Entries are
// written once per fingerprint and never mutated in place; a later write
// for the same fingerprint replaces the whole entry.
type CacheEntry struct {
	Response  TeachResponse `json:"response"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// CacheStats reports cache performance counters.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Total   int64   `json:"total"`
	Entries int64   `json:"entries"`
}
