package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lookupDuration tracks how long similarity lookups take.
	lookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "braincore",
			Subsystem: "memory",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of problem memory similarity lookups in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EvaluationsTotal counts match evaluator verdicts.
	// Labels: verdict (direct, uncertain, none)
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "braincore",
			Subsystem: "memory",
			Name:      "evaluations_total",
			Help:      "Total match evaluator decisions by verdict",
		},
		[]string{"verdict"},
	)
)
