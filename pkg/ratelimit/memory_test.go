package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// newTestLimiter returns a limiter with a controllable clock.
func newTestLimiter(t *testing.T) (*MemoryLimiter, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := l.Allow(ctx, "s1", 10, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	dec, err := l.Allow(ctx, "s1", 10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Fatal("11th request should be rejected")
	}
	if dec.RetryAfter != time.Minute {
		t.Errorf("retry after = %s, want full window", dec.RetryAfter)
	}
}

func TestWindowSlides(t *testing.T) {
	l, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if dec, _ := l.Allow(ctx, "s1", 3, time.Minute); !dec.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if dec, _ := l.Allow(ctx, "s1", 3, time.Minute); dec.Allowed {
		t.Fatal("4th request in window should be rejected")
	}

	// Advance past the window; the old entries expire.
	*now = now.Add(61 * time.Second)
	if dec, _ := l.Allow(ctx, "s1", 3, time.Minute); !dec.Allowed {
		t.Fatal("request after window advance should be allowed")
	}
}

func TestWindowBoundaryExclusive(t *testing.T) {
	l, now := newTestLimiter(t)
	ctx := context.Background()

	if dec, _ := l.Allow(ctx, "s1", 1, time.Minute); !dec.Allowed {
		t.Fatal("first request should be allowed")
	}

	// An entry exactly one window old is expired.
	*now = now.Add(time.Minute)
	if dec, _ := l.Allow(ctx, "s1", 1, time.Minute); !dec.Allowed {
		t.Fatal("entry at the exact boundary should not count")
	}
}

func TestZeroLimitAlwaysRejects(t *testing.T) {
	l, _ := newTestLimiter(t)
	dec, err := l.Allow(context.Background(), "s1", 0, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if dec.Allowed {
		t.Error("limit 0 must reject")
	}
}

func TestReset(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		l.Allow(ctx, "s1", 2, time.Minute)
	}
	if dec, _ := l.Allow(ctx, "s1", 2, time.Minute); dec.Allowed {
		t.Fatal("limit should be exhausted")
	}

	if err := l.Reset(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if dec, _ := l.Allow(ctx, "s1", 2, time.Minute); !dec.Allowed {
		t.Error("admission after reset should succeed")
	}
}

func TestRemaining(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	rem, err := l.Remaining(ctx, "s1", 5, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if rem != 5 {
		t.Errorf("remaining = %d, want 5", rem)
	}

	l.Allow(ctx, "s1", 5, time.Minute)
	l.Allow(ctx, "s1", 5, time.Minute)

	rem, _ = l.Remaining(ctx, "s1", 5, time.Minute)
	if rem != 3 {
		t.Errorf("remaining = %d, want 3", rem)
	}

	// Remaining never goes negative even with a lowered limit.
	rem, _ = l.Remaining(ctx, "s1", 1, time.Minute)
	if rem != 0 {
		t.Errorf("remaining = %d, want 0", rem)
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	l.Allow(ctx, "s1", 1, time.Minute)
	if dec, _ := l.Allow(ctx, "s1", 1, time.Minute); dec.Allowed {
		t.Fatal("s1 should be exhausted")
	}
	if dec, _ := l.Allow(ctx, "s2", 1, time.Minute); !dec.Allowed {
		t.Error("s2 should be unaffected by s1")
	}
}

func TestConcurrentAllowNeverOverAdmits(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	const limit = 25
	const callers = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := l.Allow(ctx, "shared", limit, time.Minute)
			if err != nil {
				t.Error(err)
				return
			}
			if dec.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Errorf("admitted %d requests, want exactly %d", admitted, limit)
	}
}
