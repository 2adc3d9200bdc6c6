// Package metrics exposes the Prometheus registry used by artic-select.
// Metrics are defined in their own packages (client, cache, ratelimit,
// pagination) to keep those packages independent; this package documents
// them and serves them over HTTP.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry. All metrics register here
// via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics in Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - artic_requests_total{status} (Counter): Page requests by HTTP status, or "network_error"
//   - artic_request_duration_seconds (Histogram): Page request duration
//   - artic_errors_total{class} (Counter): Failures by class (client, rate_limit, server, network, decode)
//
// Cache Metrics (pkg/cache):
//   - artic_cache_hits_total (Counter): Cached pages found for revalidation
//   - artic_cache_misses_total (Counter): Page requests with no cached entry
//   - artic_304_responses_total (Counter): 304 Not Modified responses served from cache
//   - artic_conditional_requests_total (Counter): Requests sent with If-None-Match or If-Modified-Since
//   - artic_cache_errors_total{operation} (Counter): Cache operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - artic_rate_limit_cooldowns_total (Counter): 429 responses that started a cooldown
//   - artic_rate_limit_blocks_total (Counter): Requests held back during a cooldown
//
// Bulk Selection Metrics (pkg/pagination):
//   - artic_bulk_assemblies_total{result} (Counter): Bulk selections by result
//   - artic_bulk_pages_fetched (Histogram): Pages fetched per bulk selection
//
// Example Prometheus Queries:
//
//	# Revalidation hit rate
//	rate(artic_304_responses_total[5m]) / rate(artic_conditional_requests_total[5m])
//
//	# Bulk selection failure rate
//	sum(rate(artic_bulk_assemblies_total{result="failed"}[5m])) / sum(rate(artic_bulk_assemblies_total[5m]))
//
//	# P95 page latency
//	histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
//
//	# Requests refused while cooling down
//	rate(artic_rate_limit_blocks_total[5m])
