// Package metrics provides the Prometheus registry and scrape handler for the
// gateway. Package-level metrics are defined in their respective packages
// (cache, client, coldstart, feedback) via promauto to maintain modularity and
// avoid circular dependencies; the per-deployment Monitor in pkg/monitoring
// is registered explicitly.
//
// This package also provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All promauto metrics are registered here automatically.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served on /metrics.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler for Gatherer.
func Handler() http.Handler {
	return HandlerFor(Gatherer)
}

// HandlerFor returns a scrape handler for g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Ranking Quality Metrics (pkg/monitoring, labels deployment, version, endpoint):
//   - recsys_ndcg{k} (Histogram): nDCG@k of served rankings against feedback truth
//   - recsys_precision{k} (Histogram): precision@k of served rankings
//   - recsys_average_precision (Histogram): average precision, once per event
//   - recsys_feedback_reward{routing} (Histogram): reward from the feedback channel
//   - recsys_feedback_total{routing, outcome} (Counter): feedback events, evaluated or skipped
//   - recsys_exceptions_total (Counter): failed calls by endpoint
//
// Cache Metrics (pkg/cache):
//   - recsys_cache_hits_total{layer} (Counter): Cache hits by layer (redis, memory)
//   - recsys_cache_misses_total{layer} (Counter): Cache misses by layer
//   - recsys_cache_writes_total{layer} (Counter): Entries written by layer
//   - recsys_cache_entry_bytes{layer} (Histogram): Size of written entries
//   - recsys_cache_admission_rejections_total (Counter): Responses refused by admission
//   - recsys_cache_errors_total{operation} (Counter): Cache operation errors
//
// Cold Start Metrics (pkg/coldstart):
//   - recsys_coldstart_outcomes_total{outcome} (Counter): empty, cached, original, synthesized, error
//
// Feedback Dispatch Metrics (pkg/feedback):
//   - recsys_feedback_processed_total (Counter): Events handled by workers
//   - recsys_feedback_dropped_total (Counter): Events dropped on a full queue
//
// Upstream Metrics (pkg/client):
//   - recsys_upstream_requests_total{status} (Counter): Upstream requests by HTTP status
//   - recsys_upstream_request_duration_seconds (Histogram): Upstream latency, retries included
//   - recsys_upstream_errors_total{class} (Counter): Errors by class
//   - recsys_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - recsys_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - recsys_upstream_retry_exhausted_total{error_class} (Counter): Calls that exhausted retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(recsys_cache_hits_total[5m])) /
//   (sum(rate(recsys_cache_hits_total[5m])) + sum(rate(recsys_cache_misses_total[5m])))
//
//   # Mean nDCG@10 per version
//   sum by (version) (rate(recsys_ndcg_sum{k="10"}[1h])) /
//   sum by (version) (rate(recsys_ndcg_count{k="10"}[1h]))
//
//   # Cold-start share of served answers
//   sum(rate(recsys_coldstart_outcomes_total{outcome=~"cached|synthesized"}[5m])) /
//   sum(rate(recsys_coldstart_outcomes_total[5m]))
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(recsys_upstream_request_duration_seconds_bucket[5m]))
