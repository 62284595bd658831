package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/studyhall-ai/studyhall/pkg/cache"
	"github.com/studyhall-ai/studyhall/pkg/metrics"
	"github.com/studyhall-ai/studyhall/pkg/models"
	"github.com/studyhall-ai/studyhall/pkg/provider"
	"github.com/studyhall-ai/studyhall/pkg/ratelimit"
	"github.com/studyhall-ai/studyhall/pkg/registry"
	"github.com/studyhall-ai/studyhall/pkg/teaching"
	"github.com/studyhall-ai/studyhall/pkg/usage"
)

type stubProvider struct {
	content string
	err     error
}

func (p *stubProvider) Generate(ctx context.Context, prompt string, cfg registry.ModelConfig) (*models.GenerationResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &models.GenerationResult{
		Content:    p.content,
		Model:      cfg.ModelName,
		TokensUsed: 80,
		Cost:       0.008,
	}, nil
}

func (p *stubProvider) StreamGenerate(ctx context.Context, prompt string, cfg registry.ModelConfig) (<-chan provider.StreamChunk, error) {
	ch := make(chan provider.StreamChunk)
	close(ch)
	return ch, nil
}

func (p *stubProvider) HealthCheck(ctx context.Context) models.ModelHealth {
	return models.ModelHealth{Provider: "stub", Status: models.StatusHealthy}
}

func (p *stubProvider) Name() string { return "stub" }
func (p *stubProvider) Close() error { return nil }

type stubSource struct{ p provider.Provider }

func (s *stubSource) ForModel(string) (provider.Provider, error) { return s.p, nil }

type stubHealth struct{ entries []models.ModelHealth }

func (h *stubHealth) HealthAll(ctx context.Context) []models.ModelHealth { return h.entries }

func newTestServer(t *testing.T, prov *stubProvider, limit int) *Server {
	t.Helper()

	reg, err := registry.Load(filepath.Join(t.TempDir(), "models.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	rec, err := usage.New(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = rec.Close() })

	store := cache.NewMemoryStore()
	svc := teaching.New(
		ratelimit.NewMemoryLimiter(),
		store,
		reg,
		&stubSource{p: prov},
		rec,
		metrics.New(prometheus.NewRegistry()),
		teaching.Options{RateLimit: limit, RateLimitWindow: time.Minute, CacheTTL: time.Hour},
	)
	healthy := &stubHealth{entries: []models.ModelHealth{
		{Provider: "ollama-local", Status: models.StatusHealthy},
	}}
	return New(":0", svc, reg, store, healthy)
}

const teachBody = `{
	"student_id": "alice",
	"question": "What is the quadratic formula?",
	"subject": "math",
	"grade_level": "high_school"
}`

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestTeach(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: strings.Repeat("x=(-b±√(b²-4ac))/2a ", 15)}, 10)

	w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var resp models.TeachResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.SourceLLM {
		t.Errorf("Source = %q, want llm", resp.Source)
	}
	if resp.ModelUsed != "phi3-mini-educational" {
		t.Errorf("ModelUsed = %q", resp.ModelUsed)
	}
}

func TestTeachSecondRequestServedFromCache(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: strings.Repeat("answer ", 40)}, 10)

	if w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody)
	if w.Code != http.StatusOK {
		t.Fatalf("second request: %d", w.Code)
	}

	var resp models.TeachResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != models.SourceCache {
		t.Errorf("Source = %q, want cache", resp.Source)
	}
}

func TestTeachRateLimited(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 1)

	// Distinct questions so the second request misses the cache.
	first := strings.Replace(teachBody, "quadratic", "cubic", 1)
	if w := doJSON(t, s, http.MethodPost, "/v1/teach", first); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}

	w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

func TestTeachValidation(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)

	body := strings.Replace(teachBody, `"math"`, `"astrology"`, 1)
	w := doJSON(t, s, http.MethodPost, "/v1/teach", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "subject") {
		t.Errorf("error body does not name the field: %s", w.Body.String())
	}
}

func TestTeachBackendFailure(t *testing.T) {
	perr := &provider.Error{Provider: "stub", Kind: provider.ErrUnavailable}
	s := newTestServer(t, &stubProvider{err: perr}, 10)

	w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestTeachMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)

	if w := doJSON(t, s, http.MethodGet, "/v1/teach", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "4"}, 10)

	if w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody); w.Code != http.StatusOK {
		t.Fatalf("teach: %d", w.Code)
	}

	w := doJSON(t, s, http.MethodGet, "/v1/history/alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(body.Conversations))
	}
	if body.Conversations[0].Subject != "math" {
		t.Errorf("Subject = %q", body.Conversations[0].Subject)
	}
}

func TestHistoryBadLimit(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)

	if w := doJSON(t, s, http.MethodGet, "/v1/history/alice?limit=nope", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUsageEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "4"}, 10)

	if w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody); w.Code != http.StatusOK {
		t.Fatalf("teach: %d", w.Code)
	}

	w := doJSON(t, s, http.MethodGet, "/v1/usage/alice", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Usage []models.UsageSummary `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Usage) != 1 || body.Usage[0].TotalTokens != 80 {
		t.Errorf("usage = %+v", body.Usage)
	}
}

func TestModelsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)

	w := doJSON(t, s, http.MethodGet, "/admin/models", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Default string      `json:"default"`
		Models  []modelInfo `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Default != "phi3-mini-educational" || len(body.Models) != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestCacheStatsAndInvalidate(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: strings.Repeat("answer ", 40)}, 10)

	if w := doJSON(t, s, http.MethodPost, "/v1/teach", teachBody); w.Code != http.StatusOK {
		t.Fatalf("teach: %d", w.Code)
	}

	w := doJSON(t, s, http.MethodPost, "/admin/cache/invalidate", `{"pattern":"teaching:math:*"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("invalidate status = %d", w.Code)
	}
	var res map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res["removed"] != 1 {
		t.Errorf("removed = %d, want 1", res["removed"])
	}

	w = doJSON(t, s, http.MethodGet, "/admin/cache/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats models.CacheStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("entries = %d after invalidation, want 0", stats.Entries)
	}
}

func TestInvalidateRequiresPattern(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)

	if w := doJSON(t, s, http.MethodPost, "/admin/cache/invalidate", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)

	w := doJSON(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"healthy"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHealthzDegraded(t *testing.T) {
	s := newTestServer(t, &stubProvider{content: "ok"}, 10)
	s.health = &stubHealth{entries: []models.ModelHealth{
		{Provider: "ollama-local", Status: models.StatusUnavailable, Message: "connection refused"},
	}}

	w := doJSON(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
