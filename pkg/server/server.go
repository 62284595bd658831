// Package server exposes the teaching service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyhall-ai/studyhall/pkg/cache"
	"github.com/studyhall-ai/studyhall/pkg/models"
	"github.com/studyhall-ai/studyhall/pkg/provider"
	"github.com/studyhall-ai/studyhall/pkg/registry"
	"github.com/studyhall-ai/studyhall/pkg/teaching"
)

// HealthSource reports backend reachability. Satisfied by
// *provider.Factory.
type HealthSource interface {
	HealthAll(ctx context.Context) []models.ModelHealth
}

// Server is the StudyHall HTTP gateway.
type Server struct {
	listen string
	svc    *teaching.Service
	reg    *registry.Registry
	store  cache.Store
	health HealthSource
	mux    *http.ServeMux
}

// New creates a Server wired with all dependencies. The cache store may
// be nil when caching is disabled.
func New(listen string, svc *teaching.Service, reg *registry.Registry, store cache.Store, health HealthSource) *Server {
	s := &Server{
		listen: listen,
		svc:    svc,
		reg:    reg,
		store:  store,
		health: health,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("/v1/teach", s.handleTeach)
	s.mux.HandleFunc("/v1/history/{student_id}", s.handleHistory)
	s.mux.HandleFunc("/v1/usage/{student_id}", s.handleUsage)
	s.mux.HandleFunc("/admin/models", s.handleModels)
	s.mux.HandleFunc("/admin/cache/stats", s.handleCacheStats)
	s.mux.HandleFunc("/admin/cache/invalidate", s.handleCacheInvalidate)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the gateway with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.listen,
		Handler: s,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("studyhall gateway listening on %s", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleTeach(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.TeachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reqID := uuid.NewString()
	w.Header().Set("X-Request-ID", reqID)
	ctx := teaching.WithRequestID(r.Context(), reqID)

	resp, err := s.svc.Ask(ctx, &req)
	if err != nil {
		s.writeTeachError(w, reqID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeTeachError maps service errors onto HTTP statuses. Unexpected
// failures are logged with detail but returned opaque.
func (s *Server) writeTeachError(w http.ResponseWriter, reqID string, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeJSONError(w, http.StatusBadRequest, verr.Error())
		return
	}

	var rl *teaching.RateLimitedError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
		writeJSONError(w, http.StatusTooManyRequests, rl.Error())
		return
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		log.Printf("request %s: backend failure: %v", reqID, err)
		writeJSONError(w, http.StatusBadGateway, "model backend unavailable")
		return
	}

	log.Printf("request %s: %v", reqID, err)
	writeJSONError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	convs, err := s.svc.History(r.Context(), r.PathValue("student_id"), limit)
	if err != nil {
		log.Printf("history query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summaries, err := s.svc.Usage(r.Context(), r.PathValue("student_id"))
	if err != nil {
		log.Printf("usage query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if summaries == nil {
		summaries = []models.UsageSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": summaries})
}

type modelInfo struct {
	ID              string  `json:"id"`
	Provider        string  `json:"provider"`
	ModelName       string  `json:"model_name"`
	MaxTokens       int     `json:"max_tokens"`
	CostPer1KTokens float64 `json:"cost_per_1k_tokens"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	infos := make([]modelInfo, 0)
	for _, id := range s.reg.ModelIDs() {
		cfg, ok := s.reg.Model(id)
		if !ok {
			continue
		}
		infos = append(infos, modelInfo{
			ID:              id,
			Provider:        cfg.Provider,
			ModelName:       cfg.ModelName,
			MaxTokens:       cfg.MaxTokens,
			CostPer1KTokens: cfg.CostPer1KTokens,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.reg.DefaultModel(),
		"models":  infos,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, models.CacheStats{})
		return
	}
	writeJSON(w, http.StatusOK, s.store.Stats(r.Context()))
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Pattern == "" {
		writeJSONError(w, http.StatusBadRequest, "pattern is required")
		return
	}

	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]int{"removed": 0})
		return
	}

	removed, err := s.store.Invalidate(r.Context(), body.Pattern)
	if err != nil {
		log.Printf("cache invalidate %q failed: %v", body.Pattern, err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	providers := s.health.HealthAll(r.Context())
	status := models.StatusHealthy
	code := http.StatusOK
	for _, h := range providers {
		if h.Status != models.StatusHealthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"providers": providers,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"message":%q,"code":%d}}`, message, code)
}
