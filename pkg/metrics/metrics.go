// Package metrics exposes Prometheus collectors for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the gateway's Prometheus collectors. A nil *Metrics
// is valid and records nothing, so callers never need to guard.
type Metrics struct {
	requests    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	rateLimited prometheus.Counter

	generationDuration *prometheus.HistogramVec
	tokens             *prometheus.CounterVec
	cost               *prometheus.CounterVec
}

// New creates a Metrics instance registered on the given registerer.
// Tests pass a fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyhall_requests_total",
				Help: "Total number of teaching requests by outcome",
			},
			[]string{"outcome"},
		),

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyhall_cache_requests_total",
				Help: "Total number of response cache lookups by result",
			},
			[]string{"result"},
		),

		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "studyhall_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studyhall_generation_seconds",
				Help:    "Duration of model generations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~200s
			},
			[]string{"model"},
		),

		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyhall_tokens_total",
				Help: "Total tokens consumed by model",
			},
			[]string{"model"},
		),

		cost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyhall_cost_usd_total",
				Help: "Estimated total spend in USD by model",
			},
			[]string{"model"},
		),
	}
}

// RecordRequest records one completed teaching request.
func (m *Metrics) RecordRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRateLimited records a rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// RecordGeneration records one model generation's duration, token count
// and cost.
func (m *Metrics) RecordGeneration(model string, seconds float64, tokens int, cost float64) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(model).Observe(seconds)
	m.tokens.WithLabelValues(model).Add(float64(tokens))
	m.cost.WithLabelValues(model).Add(cost)
}
