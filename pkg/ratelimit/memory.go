package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps per-identity timestamp logs in process memory. State
// does not survive restarts; use RedisLimiter when the gateway runs with
// more than one replica.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, identity string, limit int, window time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := pruneWindow(l.windows[identity], now.Add(-window))

	if limit <= 0 || len(kept) >= limit {
		l.storeWindow(identity, kept)
		return Decision{Allowed: false, RetryAfter: window}, nil
	}

	l.windows[identity] = append(kept, now)
	return Decision{Allowed: true}, nil
}

// Remaining implements Limiter.
func (l *MemoryLimiter) Remaining(_ context.Context, identity string, limit int, window time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := pruneWindow(l.windows[identity], l.now().Add(-window))
	l.storeWindow(identity, kept)

	remaining := limit - len(kept)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, identity string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, identity)
	return nil
}

func (l *MemoryLimiter) storeWindow(identity string, kept []time.Time) {
	if len(kept) == 0 {
		delete(l.windows, identity)
		return
	}
	l.windows[identity] = kept
}

// pruneWindow drops timestamps at or before the cutoff. The boundary is
// exclusive: an entry exactly one window old no longer counts.
func pruneWindow(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
