package coldstart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes counts aggregation calls by terminal state.
var Outcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "recsys_coldstart_outcomes_total",
		Help: "Total number of cold-start aggregations by outcome",
	},
	[]string{"outcome"}, // empty, cached, original, synthesized, error
)
