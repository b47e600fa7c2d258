// Package metrics exposes the process-wide Prometheus registry.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, network, pagination, ingest, api) and registered via promauto.
//
// This package provides the scrape handler and a reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used across the module.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving Registry in the text exposition
// format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - cryptomark_http_requests_total{method, status} (Counter): Outbound requests by method and status or error kind
//   - cryptomark_http_request_duration_seconds{method} (Histogram): Outbound request duration
//
// Retry Metrics (pkg/client):
//   - cryptomark_retries_total{kind} (Counter): Retry attempts by error kind
//   - cryptomark_retry_backoff_seconds{kind} (Histogram): Backoff before each retry
//   - cryptomark_retry_exhausted_total{kind} (Counter): Calls that used every attempt
//
// Cache Metrics (pkg/cache):
//   - cryptomark_cache_hits_total{state} (Counter): Hits by freshness (fresh, stale)
//   - cryptomark_cache_misses_total (Counter): Misses
//   - cryptomark_conditional_requests_total (Counter): Requests sent with validators
//   - cryptomark_304_responses_total (Counter): 304 Not Modified responses
//   - cryptomark_cache_invalidations_total{namespace} (Counter): Keys removed by invalidation
//   - cryptomark_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - cryptomark_rate_limit_429_total (Counter): 429 responses from upstream
//   - cryptomark_rate_limit_blocks_total (Counter): Requests blocked by a cooldown
//   - cryptomark_rate_limit_cooldown_seconds (Gauge): Most recent cooldown length
//
// Network Metrics (pkg/network):
//   - cryptomark_network_online (Gauge): 1 when online
//   - cryptomark_network_signals_total{state} (Counter): Connectivity signals
//
// Pagination Metrics (pkg/pagination):
//   - cryptomark_pagination_memo_lookups_total{result} (Counter): Memo hits and misses
//   - cryptomark_pagination_memo_evictions_total (Counter): FIFO evictions
//
// Sync Metrics (internal/ingest):
//   - cryptomark_sync_runs_total{result} (Counter): Sync runs by outcome
//   - cryptomark_sync_coins_total{result} (Counter): Coins upserted or failed
//   - cryptomark_sync_duration_seconds (Histogram): Sync run duration
//
// API Metrics (internal/api):
//   - cryptomark_api_requests_total{route, status} (Counter): Inbound API requests
//   - cryptomark_api_request_duration_seconds{route} (Histogram): Inbound request duration
//   - cryptomark_trades_total{side} (Counter): Executed trades
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(cryptomark_cache_hits_total{state="fresh"}[5m])) /
//   (sum(rate(cryptomark_cache_hits_total[5m])) + sum(rate(cryptomark_cache_misses_total[5m])))
//
//   # Retry Pressure
//   sum by (kind) (rate(cryptomark_retries_total[5m]))
//
//   # Offline Time
//   avg_over_time(cryptomark_network_online[1h])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(cryptomark_http_request_duration_seconds_bucket[5m]))
