// Package metrics exposes Prometheus collectors for the leaderboard service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "exampro"
	subsystem = "leaderboard"
)

// Custom registry so tests and the default Go collectors stay out of each other's way.
var registry = prometheus.NewRegistry() //nolint:gochecknoglobals

var (
	cacheHits = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_hits_total",
		Help:      "Leaderboard reads served from a valid cached snapshot",
	})
	cacheMisses = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_misses_total",
		Help:      "Leaderboard reads that found no valid snapshot",
	})
	cacheErrors = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "cache_errors_total",
		Help:      "Snapshot store failures by operation",
	}, []string{"op"})
	tierServed = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tier_served_total",
		Help:      "Leaderboard pages served per fallback tier",
	}, []string{"tier"})
	tierSoftFailures = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tier_soft_failures_total",
		Help:      "Fallback tiers that failed softly and handed over to the next tier",
	}, []string{"tier"})
	recomputeDuration = promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recompute_duration_milliseconds",
		Help:      "Duration of local aggregation and ranking passes",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
	recomputeFailures = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recompute_failures_total",
		Help:      "Local recomputations that failed",
	})
	invalidations = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "invalidations_total",
		Help:      "Department snapshot invalidations by reason",
	}, []string{"reason"})
	rankedStudents = promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ranked_students",
		Help:      "Students in the last computed snapshot per department",
	}, []string{"department"})
	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
)

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { cacheMisses.Inc() }

// RecordCacheError counts a failed store operation (get, put, invalidate, inspect).
func RecordCacheError(op string) { cacheErrors.WithLabelValues(op).Inc() }

// RecordTierServed counts a page served by tier.
func RecordTierServed(tier string) { tierServed.WithLabelValues(tier).Inc() }

// RecordTierSoftFailure counts a tier that fell through.
func RecordTierSoftFailure(tier string) { tierSoftFailures.WithLabelValues(tier).Inc() }

// RecordRecompute observes a recomputation and the resulting department size.
func RecordRecompute(department string, students int, durationMs float64) {
	recomputeDuration.Observe(durationMs)
	rankedStudents.WithLabelValues(department).Set(float64(students))
}

// RecordRecomputeFailure counts a failed recomputation.
func RecordRecomputeFailure() { recomputeFailures.Inc() }

// RecordInvalidation counts an invalidation.
func RecordInvalidation(reason string) { invalidations.WithLabelValues(reason).Inc() }

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// Registry returns the registry holding all service collectors.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
