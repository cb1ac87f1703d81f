package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	channelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "braincore_analysis_channel_duration_seconds",
		Help:    "Duration of external analysis calls by channel.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	channelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braincore_analysis_channel_failures_total",
		Help: "External analysis call failures by channel.",
	}, []string{"channel"})
)
