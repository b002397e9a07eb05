// Package metrics is the central reference for the Prometheus metrics this
// module exports. The metrics themselves are defined in their respective
// packages (client, puts, cache) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry. All metrics are registered
// against it via promauto in their respective packages; the serve command
// exposes it on /metrics.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - itsperfect_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - itsperfect_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - itsperfect_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - itsperfect_rate_limit_retries_total (Counter): 429 responses retried
//   - itsperfect_retry_exhausted_total (Counter): Requests that ran out of 429 retries
//   - itsperfect_throttle_sleeps_total (Counter): Cooldowns taken on a near-empty token bucket
//   - itsperfect_throttle_sleep_seconds (Histogram): Cooldown duration
//
// Collection Metrics (pkg/puts):
//   - putsync_puts_collected_total (Counter): PUTs whose lines were collected
//   - putsync_lines_collected_total (Counter): PUT lines collected
//   - putsync_list_pages_total (Counter): PUT listing pages walked
//
// Cache Metrics (pkg/cache):
//   - putsync_cache_hits_total{backend} (Counter): Line cache hits by backend (redis, memory)
//   - putsync_cache_misses_total (Counter): Line cache misses
//   - putsync_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Rate limit pressure
//   rate(itsperfect_throttle_sleeps_total[15m])
//
//   # Share of requests rejected with 429
//   rate(itsperfect_rate_limit_retries_total[15m]) / rate(itsperfect_requests_total[15m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(itsperfect_request_duration_seconds_bucket[5m]))
//
//   # Cache Hit Rate
//   sum(rate(putsync_cache_hits_total[5m])) /
//   (sum(rate(putsync_cache_hits_total[5m])) + sum(rate(putsync_cache_misses_total[5m])))
