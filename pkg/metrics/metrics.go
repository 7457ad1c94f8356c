// Package metrics provides centralized Prometheus metrics registry for the
// ETG client. All metrics are defined in their respective packages (client,
// cache, ratelimit, enrich, booking) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the ETG client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - etg_rate_limit_remaining{endpoint} (Gauge): Remaining request quota in the current window
//   - etg_rate_limit_waits_total{endpoint} (Counter): Requests that had to wait for a quota slot
//   - etg_rate_limit_wait_seconds{endpoint} (Histogram): Time spent waiting for a quota slot
//
// Cache Metrics (pkg/cache):
//   - etg_cache_hits_total{class} (Counter): Cache hits by class (static, search, autocomplete)
//   - etg_cache_misses_total{class} (Counter): Cache misses by class
//   - etg_cache_expired_reads_total{class} (Counter): Reads that found an expired entry
//   - etg_cache_errors_total{operation} (Counter): Cache operation errors (get, put, delete)
//
// Request Metrics (pkg/client):
//   - etg_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - etg_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - etg_errors_total{category} (Counter): Errors by category (validation, network, ...)
//
// Enrichment Metrics (pkg/enrich):
//   - etg_enrichments_total{result} (Counter): Per-hotel enrichment outcomes
//     (cache_hit, fetched, failed)
//
// Booking Metrics (pkg/booking):
//   - etg_bookings_total{outcome} (Counter): Booking sessions by terminal outcome
//     (confirmed, failed, still_processing)
//   - etg_booking_status_polls (Histogram): Status polls needed to reach a terminal state
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(etg_cache_hits_total[5m])) /
//   (sum(rate(etg_cache_hits_total[5m])) + sum(rate(etg_cache_misses_total[5m])))
//
//   # Throttling Pressure
//   rate(etg_rate_limit_waits_total[5m])
//
//   # Request Error Rate
//   rate(etg_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(etg_request_duration_seconds_bucket[5m]))
//
//   # Booking Success Rate
//   rate(etg_bookings_total{outcome="confirmed"}[1h]) /
//   sum(rate(etg_bookings_total[1h]))
