// Package metrics exposes Prometheus instrumentation for the similarity service.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyperjump/similar/internal/models"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_recommendations_total",
			Help: "Total number of similarity requests by variant and outcome",
		},
		[]string{"variant", "status"}, // status: "ok", "cached", "invalid", "not_found", "error"
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similar_search_duration_seconds",
			Help:    "Duration of similarity operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"variant", "operation"}, // operation: "top_similar", "cosine", "recommend"
	)

	IndexSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "similar_index_size",
			Help: "Number of vectors in the loaded index per variant",
		},
		[]string{"variant"},
	)

	SessionReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_session_reloads_total",
			Help: "Total number of session rebuilds",
		},
		[]string{"status"},
	)

	EvaluationGroups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_evaluation_groups_total",
			Help: "Total number of evaluation groups scored, by metric",
		},
		[]string{"metric"}, // "precision_recall", "spearman"
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similar_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similar_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similar_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "similar_api_request_duration_seconds",
			Help:    "Duration of HTTP API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Status classifies an operation error into a label value.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrInvalidK):
		return "invalid"
	case errors.Is(err, models.ErrUnknownID), errors.Is(err, models.ErrUnknownVariant):
		return "not_found"
	default:
		return "error"
	}
}

// RecordSearch records the outcome and duration of one similarity operation.
func RecordSearch(variant models.Variant, operation string, duration time.Duration, err error) {
	SearchDuration.WithLabelValues(string(variant), operation).Observe(duration.Seconds())
	RecommendationsTotal.WithLabelValues(string(variant), Status(err)).Inc()
}

// RecordCacheHit counts a cached recommendation served for variant.
func RecordCacheHit(variant models.Variant) {
	CacheHits.Inc()
	RecommendationsTotal.WithLabelValues(string(variant), "cached").Inc()
}

// RecordCacheMiss counts a recommendation cache miss.
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordReload records a session rebuild.
func RecordReload(err error) {
	if err != nil {
		SessionReloads.WithLabelValues("error").Inc()
		return
	}
	SessionReloads.WithLabelValues("ok").Inc()
}

// RecordEvaluation adds the number of groups scored by metric.
func RecordEvaluation(metric string, groups int) {
	EvaluationGroups.WithLabelValues(metric).Add(float64(groups))
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
