package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts cache lookups by namespace and result (hit|miss|error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babydraw_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"namespace", "result"},
	)

	// ProviderCalls counts external provider invocations and their outcome
	// (success|failure|timeout).
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "babydraw_provider_calls_total",
			Help: "Total number of external provider calls",
		},
		[]string{"capability", "provider", "result"},
	)

	// GenerationDuration measures wall-clock time of full drawing generations.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "babydraw_generation_duration_seconds",
			Help:    "Duration of step-by-step drawing generations",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "babydraw_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
