// Package metrics provides the centralized Prometheus metrics registry for
// the feed engine. All metrics are defined in their respective packages
// (fetch, dedup, fallback, pager) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the feed engine.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetch):
//   - feed_fetch_requests_total{section, status} (Counter): Requests by section and HTTP status
//   - feed_fetch_duration_seconds{section} (Histogram): Fetch duration by section
//   - feed_fetch_errors_total{class} (Counter): Failures by class (client, server, network, decode)
//   - feed_fetch_forbidden_total (Counter): Personalized fetches short-circuited for guests
//
// Retry Metrics (pkg/fetch):
//   - feed_fetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - feed_fetch_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - feed_fetch_retry_exhausted_total{error_class} (Counter): Fetches that exhausted max retries
//
// Dedup Metrics (pkg/dedup):
//   - feed_dedup_suppressed_total (Counter): Load-more fetches suppressed by the cooldown window
//
// Fallback Metrics (pkg/fallback):
//   - feed_fallback_served_total{section} (Counter): Fallback datasets served on initial failure
//
// Pagination Metrics (pkg/pager):
//   - feed_pages_loaded_total{section} (Counter): Pages merged into the accumulated list
//   - feed_stale_responses_discarded_total (Counter): Responses discarded after a feed switch
//   - feed_exhausted_total{section} (Counter): Feed lifetimes that reached exhaustion
//
// Example Prometheus Queries:
//
//   # Fetch Error Rate
//   rate(feed_fetch_errors_total[5m]) / rate(feed_fetch_requests_total[5m])
//
//   # Suppression Effectiveness
//   rate(feed_dedup_suppressed_total[5m])
//
//   # Fallback Frequency (backend health proxy)
//   rate(feed_fallback_served_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(feed_fetch_duration_seconds_bucket[5m]))
