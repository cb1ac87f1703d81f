// Package brain glues the troubleshooting pipeline together: normalize,
// embed, look up memory, evaluate, analyze externally when needed, fuse,
// and learn.
package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/analysis"
	"github.com/smartfix-ai/braincore/internal/embeddings"
	"github.com/smartfix-ai/braincore/internal/feedback"
	"github.com/smartfix-ai/braincore/internal/fusion"
	"github.com/smartfix-ai/braincore/internal/memory"
	"github.com/smartfix-ai/braincore/internal/query"
)

var tracer = otel.Tracer("braincore/brain")

// Config holds pipeline tuning.
type Config struct {
	// TopK is how many memory matches a lookup considers.
	TopK int

	// Thresholds drive the match evaluator.
	Thresholds memory.Thresholds

	// EmbedTimeout bounds a single embedding computation.
	EmbedTimeout time.Duration

	// LookupTimeout bounds the memory lookup.
	LookupTimeout time.Duration

	// WriteTimeout bounds memory inserts and updates.
	WriteTimeout time.Duration

	// LearnMinConfidence is the floor below which fresh analysis results
	// are not written back to memory.
	LearnMinConfidence float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 3
	}
	if c.Thresholds.HighConfidence == 0 {
		c.Thresholds.HighConfidence = 0.80
	}
	if c.Thresholds.WorthConsidering == 0 {
		c.Thresholds.WorthConsidering = 0.60
	}
	if c.Thresholds.MinSuccessRate == 0 {
		c.Thresholds.MinSuccessRate = 0.30
	}
	if c.EmbedTimeout == 0 {
		c.EmbedTimeout = 10 * time.Second
	}
	if c.LookupTimeout == 0 {
		c.LookupTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.LearnMinConfidence == 0 {
		c.LearnMinConfidence = 0.70
	}
}

// Response is the outcome of one resolved query. Solution is nil when no
// source produced anything usable.
type Response struct {
	QueryID  string           `json:"query_id"`
	Query    string           `json:"query_text"`
	Solution *fusion.Solution `json:"solution,omitempty"`
}

// Service is the brain core entry point. Per-query work is independent;
// the memory store and the feedback index are the only shared state.
type Service struct {
	embedder     embeddings.Provider
	store        *memory.Store
	orchestrator *analysis.Orchestrator
	engine       *fusion.Engine
	learner      *feedback.Learner
	config       Config
	logger       *zap.Logger
}

// NewService wires the pipeline. orchestrator may be nil when no external
// analysis collaborators are configured; the service then answers from
// memory alone.
func NewService(
	embedder embeddings.Provider,
	store *memory.Store,
	orchestrator *analysis.Orchestrator,
	engine *fusion.Engine,
	learner *feedback.Learner,
	config Config,
	logger *zap.Logger,
) (*Service, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("memory store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("fusion engine is required")
	}
	if learner == nil {
		return nil, fmt.Errorf("feedback learner is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	return &Service{
		embedder:     embedder,
		store:        store,
		orchestrator: orchestrator,
		engine:       engine,
		learner:      learner,
		config:       config,
		logger:       logger,
	}, nil
}

// Resolve answers one troubleshooting query. It returns a response with a
// nil Solution when every source came up empty; hard errors are limited
// to invalid input and memory store unavailability.
func (s *Service) Resolve(ctx context.Context, in query.Input) (*Response, error) {
	ctx, span := tracer.Start(ctx, "brain.Resolve")
	defer span.End()

	fingerprint, err := query.Normalize(in)
	if err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	queryID := "qry_" + uuid.New().String()
	log := s.logger.With(zap.String("query_id", queryID))

	// an unreachable embedder degrades to a guaranteed memory miss
	vector, err := s.embedQuery(ctx, fingerprint.CanonicalText)
	if err != nil {
		if !errors.Is(err, embeddings.ErrEmbeddingUnavailable) {
			queriesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		embeddingMisses.Inc()
		log.Warn("embedding unavailable, treating query as a memory miss", zap.Error(err))
		vector = nil
	}

	var matches []memory.Match
	if vector != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, s.config.LookupTimeout)
		matches, err = s.store.Lookup(lookupCtx, vector, s.config.TopK)
		cancel()
		if err != nil {
			queriesTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			return nil, err
		}
	}

	decision := memory.Evaluate(matches, s.config.Thresholds)
	if decision.Verdict == memory.VerdictDirect {
		return s.respondDirect(ctx, queryID, fingerprint, decision.Best, log)
	}
	return s.respondFused(ctx, queryID, fingerprint, decision.Best, vector, log)
}

// embedQuery computes the query embedding under the configured timeout.
// A timed-out computation is reported as an unavailable backend.
func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.config.EmbedTimeout)
	defer cancel()

	vector, err := s.embedder.EmbedQuery(embedCtx, text)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %v", embeddings.ErrEmbeddingUnavailable, err)
	}
	return vector, err
}

// respondDirect answers straight from memory, skipping external analysis.
func (s *Service) respondDirect(ctx context.Context, queryID string, fingerprint *query.Fingerprint, best *memory.Match, log *zap.Logger) (*Response, error) {
	record := best.Record

	writeCtx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	err := s.store.UpdateOnMatch(writeCtx, record.ID, best.Similarity)
	cancel()
	if err != nil {
		// the answer is still good; the usage bump is bookkeeping
		log.Warn("match update failed", zap.String("record_id", record.ID), zap.Error(err))
	}

	s.learner.Bind(queryID, record.ID)
	queriesTotal.WithLabelValues("direct").Inc()
	log.Info("direct memory hit",
		zap.String("record_id", record.ID),
		zap.Float64("similarity", best.Similarity),
	)

	return &Response{
		QueryID: queryID,
		Query:   fingerprint.CanonicalText,
		Solution: &fusion.Solution{
			Issue:      record.ProblemText,
			Confidence: record.Confidence,
			Steps:      record.Steps,
			Source:     fusion.SourceMemory,
			RecordID:   record.ID,
		},
	}, nil
}

// respondFused runs external analysis, fuses whatever came back with the
// uncertain memory candidate, and learns from the result.
func (s *Service) respondFused(ctx context.Context, queryID string, fingerprint *query.Fingerprint, best *memory.Match, vector []float32, log *zap.Logger) (*Response, error) {
	input := fusion.Input{
		Query:  fingerprint.CanonicalText,
		Memory: best,
	}

	if s.orchestrator != nil {
		result, err := s.orchestrator.Analyze(ctx, fingerprint.CanonicalText, fingerprint.Hints)
		switch {
		case err == nil:
			input.Reasoned = result.Reasoned
			input.Web = result.Web
		case errors.Is(err, analysis.ErrAnalysisFailed):
			// degrade to whatever memory offered
			log.Warn("external analysis failed", zap.Error(err))
		default:
			queriesTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	solution, err := s.engine.Fuse(input)
	if errors.Is(err, fusion.ErrNoSolution) {
		queriesTotal.WithLabelValues("none").Inc()
		log.Info("no solution found")
		return &Response{QueryID: queryID, Query: fingerprint.CanonicalText}, nil
	}
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	s.learn(ctx, queryID, fingerprint, solution, best, vector, log)

	queriesTotal.WithLabelValues("fused").Inc()
	return &Response{
		QueryID:  queryID,
		Query:    fingerprint.CanonicalText,
		Solution: solution,
	}, nil
}

// learn writes a non-direct answer back to memory and binds the query for
// feedback. Learning failures never fail the response.
func (s *Service) learn(ctx context.Context, queryID string, fingerprint *query.Fingerprint, solution *fusion.Solution, best *memory.Match, vector []float32, log *zap.Logger) {
	writeCtx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()

	// fresh analysis confident enough to remember becomes a new record
	if solution.Source == fusion.SourceAnalysis &&
		solution.Confidence >= s.config.LearnMinConfidence &&
		vector != nil && len(solution.Steps) > 0 {
		record, err := s.store.Insert(writeCtx, memory.ProblemRecord{
			ProblemText:    fingerprint.CanonicalText,
			ProblemType:    "ai_generated",
			DeviceCategory: fingerprint.Hints.DeviceCategory,
			ErrorCodes:     fingerprint.Hints.ErrorCodes,
			Steps:          solution.Steps,
			Confidence:     solution.Confidence,
			SuccessRate:    0.5,
		}, vector)
		if err != nil {
			log.Warn("learning insert failed", zap.Error(err))
			return
		}
		recordsLearned.Inc()
		s.learner.Bind(queryID, record.ID)
		log.Info("learned new problem record", zap.String("record_id", record.ID))
		return
	}

	// otherwise, credit the memory record that contributed, nudging its
	// confidence toward the observed similarity
	if solution.RecordID != "" && best != nil {
		if err := s.store.UpdateOnMatch(writeCtx, solution.RecordID, best.Similarity); err != nil {
			log.Warn("match update failed", zap.String("record_id", solution.RecordID), zap.Error(err))
		}
		s.learner.Bind(queryID, solution.RecordID)
	}
}

// Feedback applies one user feedback event. Best-effort: it never fails
// the caller.
func (s *Service) Feedback(ctx context.Context, queryID string, success bool, score int) {
	ctx, span := tracer.Start(ctx, "brain.Feedback")
	defer span.End()

	s.learner.Submit(ctx, feedback.Event{QueryID: queryID, Success: success, Score: score})
}

// Stats returns aggregate memory statistics.
func (s *Service) Stats(ctx context.Context) (*memory.Stats, error) {
	return s.store.Stats(ctx)
}

// SearchMemory finds stored problems similar to the given text.
func (s *Service) SearchMemory(ctx context.Context, text string, k int) ([]memory.Match, error) {
	ctx, span := tracer.Start(ctx, "brain.SearchMemory")
	defer span.End()

	canonical := query.Canonicalize(text)
	if canonical == "" {
		return nil, query.ErrInvalidInputKind
	}
	if k <= 0 {
		k = s.config.TopK
	}

	vector, err := s.embedQuery(ctx, canonical)
	if err != nil {
		return nil, err
	}
	return s.store.Lookup(ctx, vector, k)
}

// AddSolution inserts a curated problem record, embedding its problem
// text first.
func (s *Service) AddSolution(ctx context.Context, record memory.ProblemRecord) (*memory.ProblemRecord, error) {
	ctx, span := tracer.Start(ctx, "brain.AddSolution")
	defer span.End()

	canonical := query.Canonicalize(record.ProblemText)
	if canonical == "" {
		return nil, memory.ErrEmptyProblemText
	}
	record.ProblemText = canonical

	vector, err := s.embedQuery(ctx, canonical)
	if err != nil {
		return nil, err
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()
	return s.store.Insert(writeCtx, record, vector)
}
