package feedback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedbackProcessed counts events handled by dispatcher workers.
	FeedbackProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recsys_feedback_processed_total",
		Help: "Total number of feedback events handled by dispatcher workers",
	})

	// FeedbackDropped counts events dropped because the queue was full.
	FeedbackDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recsys_feedback_dropped_total",
		Help: "Total number of feedback events dropped because the queue was full",
	})
)
