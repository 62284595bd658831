// Package teaching orchestrates a tutoring request end to end: admission,
// cache lookup, model routing, generation, response shaping and
// accounting.
package teaching

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/studyhall-ai/studyhall/pkg/cache"
	"github.com/studyhall-ai/studyhall/pkg/metrics"
	"github.com/studyhall-ai/studyhall/pkg/models"
	"github.com/studyhall-ai/studyhall/pkg/provider"
	"github.com/studyhall-ai/studyhall/pkg/ratelimit"
	"github.com/studyhall-ai/studyhall/pkg/registry"
	"github.com/studyhall-ai/studyhall/pkg/router"
	"github.com/studyhall-ai/studyhall/pkg/usage"
)

// RateLimitedError reports a rejected request along with how long the
// caller should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// ProviderSource resolves a model id to its backend. Satisfied by
// *provider.Factory.
type ProviderSource interface {
	ForModel(modelID string) (provider.Provider, error)
}

type ctxKey int

const requestIDKey ctxKey = 0

// WithRequestID attaches a request id to the context. It is stamped onto
// usage records for correlation with access logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Options configures a Service.
type Options struct {
	RateLimit       int
	RateLimitWindow time.Duration
	CacheTTL        time.Duration
}

// Service answers tutoring questions. The cache store may be nil, which
// disables caching entirely.
type Service struct {
	limiter   ratelimit.Limiter
	store     cache.Store
	reg       *registry.Registry
	providers ProviderSource
	recorder  usage.Recorder
	metrics   *metrics.Metrics
	opts      Options
}

// New creates a Service.
func New(limiter ratelimit.Limiter, store cache.Store, reg *registry.Registry, providers ProviderSource, recorder usage.Recorder, m *metrics.Metrics, opts Options) *Service {
	return &Service{
		limiter:   limiter,
		store:     store,
		reg:       reg,
		providers: providers,
		recorder:  recorder,
		metrics:   m,
		opts:      opts,
	}
}

// Ask validates, admits, and answers one tutoring question. Rejections
// surface as *RateLimitedError, malformed input as
// *models.ValidationError, and backend failures as *provider.Error.
func (s *Service) Ask(ctx context.Context, req *models.TeachRequest) (*models.TeachResponse, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	dec, err := s.limiter.Allow(ctx, req.StudentID, s.opts.RateLimit, s.opts.RateLimitWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !dec.Allowed {
		s.metrics.RecordRateLimited()
		s.metrics.RecordRequest("rate_limited")
		return nil, &RateLimitedError{RetryAfter: dec.RetryAfter}
	}

	key := cache.Fingerprint(req)
	if s.store != nil {
		if entry, ok := s.store.Get(ctx, key); ok {
			s.metrics.RecordCacheLookup(true)
			s.metrics.RecordRequest("success")
			resp := entry.Response
			resp.Source = models.SourceCache
			resp.ProcessingTimeMs = time.Since(start).Milliseconds()
			return &resp, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	modelID := router.Select(req, s.reg.ModelIDs(), s.reg.DefaultModel())
	modelCfg, ok := s.reg.Model(modelID)
	if !ok {
		return nil, fmt.Errorf("routed model %q not in registry", modelID)
	}

	prov, err := s.providers.ForModel(modelID)
	if err != nil {
		return nil, fmt.Errorf("resolve provider for %s: %w", modelID, err)
	}

	result, err := prov.Generate(ctx, BuildPrompt(req), modelCfg)
	if err != nil {
		s.metrics.RecordRequest("error")
		s.recordUsage(ctx, req.StudentID, modelID, 0, 0, false)
		return nil, err
	}

	answer := truncateAnswer(result.Content)
	resp := &models.TeachResponse{
		Answer:              answer,
		ModelUsed:           modelID,
		TokensUsed:          result.TokensUsed,
		EstimatedCost:       result.Cost,
		Confidence:          confidence(result.Content),
		Source:              models.SourceLLM,
		ProcessingTimeMs:    time.Since(start).Milliseconds(),
		FollowUpSuggestions: followUps(req.Subject),
		LearningResources:   learningResources(req.Subject),
	}

	s.metrics.RecordRequest("success")
	s.metrics.RecordGeneration(modelID, time.Since(start).Seconds(), result.TokensUsed, result.Cost)
	s.recordUsage(ctx, req.StudentID, modelID, result.TokensUsed, result.Cost, true)
	s.saveConversation(ctx, req, resp)

	if s.store != nil {
		if err := s.store.Put(ctx, key, *resp, s.opts.CacheTTL); err != nil {
			log.Printf("cache write for %s failed: %v", key, err)
		}
	}

	return resp, nil
}

// History returns a student's recent conversations.
func (s *Service) History(ctx context.Context, studentID string, limit int) ([]models.Conversation, error) {
	return s.recorder.History(ctx, studentID, limit)
}

// Usage returns a student's aggregated usage.
func (s *Service) Usage(ctx context.Context, studentID string) ([]models.UsageSummary, error) {
	return s.recorder.Summary(ctx, studentID)
}

// recordUsage is accounting, not serving; failures are logged and do not
// fail the request.
func (s *Service) recordUsage(ctx context.Context, studentID, modelID string, tokens int, cost float64, success bool) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, models.UsageRecord{
		StudentID:  studentID,
		Model:      modelID,
		TokensUsed: tokens,
		Cost:       cost,
		Success:    success,
		RequestID:  requestID(ctx),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("usage record for %s failed: %v", studentID, err)
	}
}

func (s *Service) saveConversation(ctx context.Context, req *models.TeachRequest, resp *models.TeachResponse) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.SaveConversation(ctx, models.Conversation{
		StudentID: req.StudentID,
		Subject:   string(req.Subject),
		Question:  req.Question,
		Answer:    resp.Answer,
		Model:     resp.ModelUsed,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("conversation save for %s failed: %v", req.StudentID, err)
	}
}
