// Package feedback routes post-hoc user feedback to the problem records
// that answered the original queries.
package feedback

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/memory"
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "braincore_feedback_submissions_total",
	Help: "Feedback submissions by outcome.",
}, []string{"outcome"})

// Config holds feedback index tuning.
type Config struct {
	// TTL is how long a query remains eligible for feedback.
	TTL time.Duration

	// MaxEntries bounds the in-flight feedback index.
	MaxEntries int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = 30 * time.Minute
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 10000
	}
}

// Event is one user feedback submission.
type Event struct {
	QueryID string
	Success bool

	// Score is an optional 1-5 satisfaction rating, 0 when absent.
	Score int
}

// Learner resolves feedback events to problem records and folds the
// outcome into their success rates. Feedback is best-effort: unknown,
// expired or failing submissions are logged and dropped, never surfaced
// to the caller.
type Learner struct {
	index  *expirable.LRU[string, string]
	store  *memory.Store
	logger *zap.Logger
}

// NewLearner creates a feedback learner over the given memory store.
func NewLearner(store *memory.Store, config Config, logger *zap.Logger) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	return &Learner{
		index:  expirable.NewLRU[string, string](config.MaxEntries, nil, config.TTL),
		store:  store,
		logger: logger,
	}
}

// Bind remembers which record answered a query, keeping it eligible for
// feedback until the index TTL expires.
func (l *Learner) Bind(queryID, recordID string) {
	l.index.Add(queryID, recordID)
}

// Submit applies one feedback event. The mapping is consumed on success,
// so repeated feedback for the same query is a no-op.
func (l *Learner) Submit(ctx context.Context, event Event) {
	if event.Score < 0 || event.Score > 5 {
		submissionsTotal.WithLabelValues("invalid").Inc()
		l.logger.Warn("dropping feedback with out-of-range score",
			zap.String("query_id", event.QueryID),
			zap.Int("score", event.Score),
		)
		return
	}

	recordID, ok := l.index.Get(event.QueryID)
	if !ok {
		submissionsTotal.WithLabelValues("unknown").Inc()
		l.logger.Info("dropping feedback for unknown or expired query",
			zap.String("query_id", event.QueryID),
		)
		return
	}

	if err := l.store.UpdateOnFeedback(ctx, recordID, event.Success); err != nil {
		submissionsTotal.WithLabelValues("failed").Inc()
		l.logger.Warn("feedback update failed",
			zap.String("query_id", event.QueryID),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
		return
	}

	l.index.Remove(event.QueryID)
	submissionsTotal.WithLabelValues("applied").Inc()
	l.logger.Info("feedback applied",
		zap.String("query_id", event.QueryID),
		zap.String("record_id", recordID),
		zap.Bool("success", event.Success),
		zap.Int("score", event.Score),
	)
}
