package analysis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/query"
)

var tracer = otel.Tracer("braincore/analysis")

// Config holds analysis orchestration tuning.
type Config struct {
	// ReasonerTimeout bounds a single LLM analysis call.
	ReasonerTimeout time.Duration

	// SearchTimeout bounds a single web search call.
	SearchTimeout time.Duration

	// SearchResults is the number of web results requested.
	SearchResults int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ReasonerTimeout == 0 {
		c.ReasonerTimeout = 30 * time.Second
	}
	if c.SearchTimeout == 0 {
		c.SearchTimeout = 10 * time.Second
	}
	if c.SearchResults == 0 {
		c.SearchResults = 5
	}
}

// Result carries whatever the external channels produced. Either field may
// be empty when its channel failed, but never both.
type Result struct {
	Reasoned *Candidate
	Web      []WebSource
}

// Orchestrator fans a problem out to the configured reasoner and searcher
// and collects whatever comes back in time. Channels are independent: one
// failing or timing out never blocks the other, and a single successful
// channel is a usable result.
type Orchestrator struct {
	reasoner Reasoner
	searcher Searcher
	config   Config
	logger   *zap.Logger
}

// NewOrchestrator creates an analysis orchestrator. Either collaborator
// may be nil; at least one must be set.
func NewOrchestrator(reasoner Reasoner, searcher Searcher, config Config, logger *zap.Logger) (*Orchestrator, error) {
	if reasoner == nil && searcher == nil {
		return nil, fmt.Errorf("%w: neither reasoner nor searcher configured", ErrAnalysisFailed)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	return &Orchestrator{
		reasoner: reasoner,
		searcher: searcher,
		config:   config,
		logger:   logger,
	}, nil
}

// Analyze runs both channels concurrently and returns the union of their
// results. It returns ErrAnalysisFailed only when every configured channel
// failed, carrying the first failure for diagnostics.
func (o *Orchestrator) Analyze(ctx context.Context, problem string, hints query.Hints) (*Result, error) {
	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	defer span.End()

	type reasonOut struct {
		candidate *Candidate
		err       error
	}
	type searchOut struct {
		sources []WebSource
		err     error
	}

	reasonCh := make(chan reasonOut, 1)
	searchCh := make(chan searchOut, 1)

	if o.reasoner != nil {
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, o.config.ReasonerTimeout)
			defer cancel()
			start := time.Now()
			candidate, err := o.reasoner.Analyze(callCtx, problem, hints)
			channelDuration.WithLabelValues("reasoner").Observe(time.Since(start).Seconds())
			reasonCh <- reasonOut{candidate: candidate, err: err}
		}()
	} else {
		reasonCh <- reasonOut{err: ErrNoReasoner}
	}

	if o.searcher != nil {
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, o.config.SearchTimeout)
			defer cancel()
			start := time.Now()
			sources, err := o.searcher.Search(callCtx, problem, o.config.SearchResults)
			channelDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
			searchCh <- searchOut{sources: sources, err: err}
		}()
	} else {
		searchCh <- searchOut{err: ErrNoSearcher}
	}

	reasoned := <-reasonCh
	searched := <-searchCh

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &Result{}
	if reasoned.err != nil {
		if o.reasoner != nil {
			channelFailures.WithLabelValues("reasoner").Inc()
			o.logger.Warn("reasoner channel failed", zap.Error(reasoned.err))
		}
	} else {
		result.Reasoned = reasoned.candidate
	}
	if searched.err != nil {
		if o.searcher != nil {
			channelFailures.WithLabelValues("search").Inc()
			o.logger.Warn("search channel failed", zap.Error(searched.err))
		}
	} else {
		result.Web = searched.sources
	}

	if result.Reasoned == nil && len(result.Web) == 0 {
		cause := reasoned.err
		if o.reasoner == nil || cause == nil {
			cause = searched.err
		}
		if cause == nil {
			span.AddEvent("analysis produced no results")
			return nil, fmt.Errorf("%w: no results", ErrAnalysisFailed)
		}
		span.RecordError(cause)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, cause)
	}
	return result, nil
}
