package brain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "braincore_queries_total",
		Help: "Resolved queries by outcome.",
	}, []string{"outcome"})

	embeddingMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "braincore_embedding_misses_total",
		Help: "Queries degraded to a memory miss because embedding was unavailable.",
	})

	recordsLearned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "braincore_records_learned_total",
		Help: "Problem records written back to memory from fresh analysis.",
	})
)
