package cache

import (
	"context"
	"testing"
	"time"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

var _ Store = (*MemoryStore)(nil)
var _ Store = (*RedisStore)(nil)

func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	t.Cleanup(func() { _ = s.Close() })
	return s, &now
}

func testResponse(answer string) models.TeachResponse {
	return models.TeachResponse{
		Answer:     answer,
		ModelUsed:  "phi3-mini-educational",
		TokensUsed: 42,
		Confidence: 0.7,
		Source:     models.SourceLLM,
	}
}

func TestPutAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "teaching:math:elementary:default:abc", testResponse("4"), time.Hour); err != nil {
		t.Fatal(err)
	}

	entry, ok := s.Get(ctx, "teaching:math:elementary:default:abc")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if entry.Response.Answer != "4" {
		t.Errorf("unexpected answer: %s", entry.Response.Answer)
	}

	if _, ok := s.Get(ctx, "teaching:math:elementary:default:other"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestTTLExpiry(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", testResponse("4"), time.Second); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(2 * time.Second)
	if _, ok := s.Get(ctx, "k"); ok {
		t.Error("expected miss after TTL elapsed")
	}
	if got := s.Stats(ctx).Entries; got != 0 {
		t.Errorf("expired entry should be dropped, have %d entries", got)
	}
}

func TestOverwriteReplacesEntry(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, "k", testResponse("old"), time.Hour)
	s.Put(ctx, "k", testResponse("new"), time.Hour)

	entry, ok := s.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if entry.Response.Answer != "new" {
		t.Errorf("answer = %q, want overwrite to win", entry.Response.Answer)
	}
}

func TestInvalidatePattern(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, "teaching:math:elementary:default:aaa", testResponse("4"), time.Hour)
	s.Put(ctx, "teaching:science:elementary:default:bbb", testResponse("photosynthesis"), time.Hour)

	deleted, err := s.Invalidate(ctx, "teaching:math:*")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, ok := s.Get(ctx, "teaching:math:elementary:default:aaa"); ok {
		t.Error("math entry should be gone")
	}
	if _, ok := s.Get(ctx, "teaching:science:elementary:default:bbb"); !ok {
		t.Error("science entry should survive")
	}
}

func TestInvalidateEmptyStore(t *testing.T) {
	s, _ := newTestStore(t)
	deleted, err := s.Invalidate(context.Background(), "teaching:*")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	stats := s.Stats(ctx)
	if stats.Hits != 0 || stats.Misses != 0 || stats.HitRate != 0.0 {
		t.Errorf("fresh stats should be zero: %+v", stats)
	}

	s.Put(ctx, "k", testResponse("4"), time.Hour)
	s.Get(ctx, "missing") // miss
	s.Get(ctx, "k")       // hit

	stats = s.Stats(ctx)
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", stats.HitRate)
	}
	if stats.Total != 2 || stats.Entries != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
