package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups that found an entry, by freshness.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptomark_cache_hits_total",
			Help: "Total number of cache hits by freshness",
		},
		[]string{"state"}, // "fresh", "stale"
	)

	// CacheMisses tracks lookups that found nothing.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptomark_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with validators.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptomark_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// NotModifiedResponses tracks 304 responses that revalidated an entry.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cryptomark_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheInvalidations tracks keys removed by namespace invalidation.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptomark_cache_invalidations_total",
			Help: "Total number of cache keys removed by invalidation",
		},
		[]string{"namespace"},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptomark_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate"
	)
)
