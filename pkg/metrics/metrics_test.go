package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRequest("success")
	m.RecordRequest("success")
	m.RecordRequest("error")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("success")); got != 2 {
		t.Errorf("success requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("error")); got != 1 {
		t.Errorf("error requests = %v, want 1", got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}

func TestRecordGeneration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordGeneration("phi3-mini-educational", 1.2, 150, 0.015)

	if got := testutil.ToFloat64(m.tokens.WithLabelValues("phi3-mini-educational")); got != 150 {
		t.Errorf("tokens = %v, want 150", got)
	}
	if got := testutil.ToFloat64(m.cost.WithLabelValues("phi3-mini-educational")); got != 0.015 {
		t.Errorf("cost = %v, want 0.015", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.RecordRequest("success")
	m.RecordCacheLookup(true)
	m.RecordRateLimited()
	m.RecordGeneration("m", 0.1, 10, 0.001)
}
