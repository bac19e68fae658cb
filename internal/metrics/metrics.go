// Package metrics exposes Prometheus metrics for the recommendation engine.
//
// Metrics Categories:
//   - Serving: recommendations by algorithm and outcome, fallbacks, latency
//   - Training: runs by outcome, duration, index size
//   - Data access: source errors, memo hits and misses, breaker state
//   - Result cache: hits and misses
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Serving

	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_recommendations_total",
			Help: "Recommendation requests by resolved algorithm and outcome",
		},
		[]string{"algorithm", "outcome"},
	)

	// FallbacksTotal counts degradations from one strategy to another.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_fallbacks_total",
			Help: "Strategy fallbacks by source strategy and reason",
		},
		[]string{"from", "to", "reason"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_recommend_duration_seconds",
			Help:    "Duration of recommendation calls in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"algorithm"},
	)

	// Training

	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_training_runs_total",
			Help: "Training runs by algorithm and outcome",
		},
		[]string{"algorithm", "outcome"},
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_training_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
		[]string{"algorithm"},
	)

	IndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_similarity_index_items",
			Help: "Items in the currently installed similarity index",
		},
	)

	// Data access

	SourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_source_errors_total",
			Help: "Failed interaction source queries by view",
		},
		[]string{"view"},
	)

	MemoHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_memo_hits_total",
			Help: "Memoized interaction view hits by view",
		},
		[]string{"view"},
	)

	MemoMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_memo_misses_total",
			Help: "Memoized interaction view misses by view",
		},
		[]string{"view"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommender_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// Result cache

	ResultCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_result_cache_hits_total",
			Help: "Scored recommendation cache hits",
		},
	)

	ResultCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_result_cache_misses_total",
			Help: "Scored recommendation cache misses",
		},
	)
)

func ObserveRecommendation(algorithm, outcome string, d time.Duration) {
	RecommendationsTotal.WithLabelValues(algorithm, outcome).Inc()
	RecommendDuration.WithLabelValues(algorithm).Observe(d.Seconds())
}

func RecordFallback(from, to, reason string) {
	FallbacksTotal.WithLabelValues(from, to, reason).Inc()
}

func ObserveTraining(algorithm, outcome string, d time.Duration) {
	TrainingRunsTotal.WithLabelValues(algorithm, outcome).Inc()
	TrainingDuration.WithLabelValues(algorithm).Observe(d.Seconds())
}
