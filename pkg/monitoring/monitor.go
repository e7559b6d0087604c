// Package monitoring provides the Prometheus metrics a recommender emits
// for ranking quality, feedback and endpoint failures.
package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricNDCG             = "recsys_ndcg"
	MetricPrecision        = "recsys_precision"
	MetricAveragePrecision = "recsys_average_precision"
	MetricFeedbackReward   = "recsys_feedback_reward"
	MetricFeedbackTotal    = "recsys_feedback_total"
	MetricExceptionsTotal  = "recsys_exceptions_total"
)

// Endpoint label values.
const (
	EndpointPredict   = "predict"
	EndpointAggregate = "aggregate"
	EndpointFeedback  = "send-feedback"
	EndpointRoute     = "route"
)

// Feedback outcome label values.
const (
	FeedbackEvaluated = "evaluated"
	FeedbackSkipped   = "skipped"
)

// scoreBuckets cover metrics bounded to [0,1].
var scoreBuckets = prometheus.LinearBuckets(0.1, 0.1, 10)

// Monitor contains Prometheus metrics for a single recommender deployment.
// Every observation is labeled with the deployment id and model version.
// All operations are thread-safe.
type Monitor struct {
	deployment string
	version    string

	ndcg             *prometheus.HistogramVec
	precision        *prometheus.HistogramVec
	averagePrecision *prometheus.HistogramVec
	reward           *prometheus.HistogramVec
	feedbackTotal    *prometheus.CounterVec
	exceptions       *prometheus.CounterVec
}

// NewMonitor creates and returns a new Monitor with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMonitor(deployment, version string) *Monitor {
	common := []string{"deployment", "version", "endpoint"}
	withK := append(append([]string{}, common...), "k")

	return &Monitor{
		deployment: deployment,
		version:    version,
		ndcg: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricNDCG,
				Help:    "nDCG@k of served rankings against feedback ground truth",
				Buckets: scoreBuckets,
			},
			withK,
		),
		precision: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPrecision,
				Help:    "precision@k of served rankings against feedback ground truth",
				Buckets: scoreBuckets,
			},
			withK,
		),
		averagePrecision: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricAveragePrecision,
				Help:    "Average precision of served rankings against feedback ground truth",
				Buckets: scoreBuckets,
			},
			common,
		),
		reward: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricFeedbackReward,
				Help:    "Reward reported by the feedback channel",
				Buckets: scoreBuckets,
			},
			append(append([]string{}, common...), "routing"),
		),
		feedbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedbackTotal,
				Help: "Total number of feedback events by routing and outcome",
			},
			append(append([]string{}, common...), "routing", "outcome"),
		),
		exceptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricExceptionsTotal,
				Help: "Total number of failed calls by endpoint",
			},
			common,
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Monitor) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Monitor) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ndcg,
		m.precision,
		m.averagePrecision,
		m.reward,
		m.feedbackTotal,
		m.exceptions,
	}
}

// ObserveNDCG records nDCG@k for the feedback endpoint.
func (m *Monitor) ObserveNDCG(value float64, k int) {
	m.ndcg.WithLabelValues(m.deployment, m.version, EndpointFeedback, strconv.Itoa(k)).Observe(value)
}

// ObservePrecision records precision@k for the feedback endpoint.
func (m *Monitor) ObservePrecision(value float64, k int) {
	m.precision.WithLabelValues(m.deployment, m.version, EndpointFeedback, strconv.Itoa(k)).Observe(value)
}

// ObserveAveragePrecision records average precision for the feedback endpoint.
func (m *Monitor) ObserveAveragePrecision(value float64) {
	m.averagePrecision.WithLabelValues(m.deployment, m.version, EndpointFeedback).Observe(value)
}

// ObserveReward records the reward of a feedback event.
// routing is the branch that served the response, or -1 when unknown.
func (m *Monitor) ObserveReward(value float64, routing int) {
	m.reward.WithLabelValues(m.deployment, m.version, EndpointFeedback, strconv.Itoa(routing)).Observe(value)
}

// IncFeedback counts a feedback event.
func (m *Monitor) IncFeedback(routing int, outcome string) {
	m.feedbackTotal.WithLabelValues(m.deployment, m.version, EndpointFeedback, strconv.Itoa(routing), outcome).Inc()
}

// IncException counts a failed call on endpoint.
func (m *Monitor) IncException(endpoint string) {
	m.exceptions.WithLabelValues(m.deployment, m.version, endpoint).Inc()
}
