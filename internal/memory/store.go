package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/vectorstore"
)

var tracer = otel.Tracer("braincore/memory")

// timeNow is a variable for testing purposes.
var timeNow = time.Now

// Config holds problem memory store tuning.
type Config struct {
	// FeedbackAlpha is the EMA smoothing factor for success rate updates:
	// success_rate' = success_rate*(1-alpha) + outcome*alpha.
	FeedbackAlpha float64

	// MatchNudge is the factor by which confidence moves toward the
	// observed similarity on every match.
	MatchNudge float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.FeedbackAlpha == 0 {
		c.FeedbackAlpha = 0.20
	}
	if c.MatchNudge == 0 {
		c.MatchNudge = 0.10
	}
}

// Store is the problem memory store.
//
// It exclusively owns ProblemRecords and their embeddings. Writes to the
// same record are serialized through a per-record lock so concurrent match
// and feedback updates never lose increments; unrelated records update
// concurrently. Lookups read a consistent snapshot from the backing vector
// store.
type Store struct {
	vectors vectorstore.Store
	config  Config
	logger  *zap.Logger

	// locks holds one mutex per record ID for read-modify-write cycles.
	locks sync.Map
}

// NewStore creates a problem memory store over the given vector store.
func NewStore(vectors vectorstore.Store, config Config, logger *zap.Logger) (*Store, error) {
	if vectors == nil {
		return nil, fmt.Errorf("%w: vector store is required", vectorstore.ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	return &Store{
		vectors: vectors,
		config:  config,
		logger:  logger,
	}, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Lookup returns up to k records ordered by descending similarity to the
// query embedding. Ties are broken by higher success rate, then higher
// usage count, then most recent update, then record ID, giving a
// deterministic total order.
func (s *Store) Lookup(ctx context.Context, vector []float32, k int) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "memory.Lookup")
	defer span.End()

	start := timeNow()
	results, err := s.vectors.Query(ctx, vector, k)
	lookupDuration.Observe(timeNow().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		record, err := decodeRecord(res.Document)
		if err != nil {
			s.logger.Warn("skipping undecodable record",
				zap.String("id", res.ID),
				zap.Error(err),
			)
			continue
		}
		matches = append(matches, Match{Record: record, Similarity: float64(res.Similarity)})
	}

	sortMatches(matches)
	return matches, nil
}

// sortMatches orders matches by the deterministic total order.
func sortMatches(matches []Match) {
	const tie = 1e-9
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if diff := a.Similarity - b.Similarity; diff > tie || diff < -tie {
			return diff > 0
		}
		if a.Record.SuccessRate != b.Record.SuccessRate {
			return a.Record.SuccessRate > b.Record.SuccessRate
		}
		if a.Record.UsageCount != b.Record.UsageCount {
			return a.Record.UsageCount > b.Record.UsageCount
		}
		if !a.Record.UpdatedAt.Equal(b.Record.UpdatedAt) {
			return a.Record.UpdatedAt.After(b.Record.UpdatedAt)
		}
		return a.Record.ID < b.Record.ID
	})
}

// Insert stores a new problem record with its embedding and returns the
// stored copy. ID and timestamps are assigned here; confidence and success
// rate are clamped to [0,1].
func (s *Store) Insert(ctx context.Context, record ProblemRecord, embedding []float32) (*ProblemRecord, error) {
	ctx, span := tracer.Start(ctx, "memory.Insert")
	defer span.End()

	if record.ID == "" {
		record.ID = "prob_" + uuid.New().String()
	}
	now := timeNow().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Confidence = clamp01(record.Confidence)
	record.SuccessRate = clamp01(record.SuccessRate)

	if err := record.Validate(); err != nil {
		return nil, err
	}

	doc, err := encodeRecord(&record, embedding)
	if err != nil {
		return nil, err
	}

	mu := s.lockFor(record.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.vectors.Upsert(ctx, doc); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("problem record inserted",
		zap.String("id", record.ID),
		zap.String("problem_type", record.ProblemType),
		zap.Float64("confidence", record.Confidence),
	)
	return &record, nil
}

// UpdateOnMatch records that a lookup surfaced this record: usage count is
// incremented and confidence is nudged toward the observed similarity.
func (s *Store) UpdateOnMatch(ctx context.Context, id string, similarity float64) error {
	ctx, span := tracer.Start(ctx, "memory.UpdateOnMatch")
	defer span.End()

	return s.mutate(ctx, id, func(r *ProblemRecord) {
		r.UsageCount++
		r.Confidence = clamp01(r.Confidence + s.config.MatchNudge*(similarity-r.Confidence))
	})
}

// UpdateOnFeedback folds one feedback outcome into the record's success
// rate using an exponential moving average.
func (s *Store) UpdateOnFeedback(ctx context.Context, id string, success bool) error {
	ctx, span := tracer.Start(ctx, "memory.UpdateOnFeedback")
	defer span.End()

	outcome := 0.0
	if success {
		outcome = 1.0
	}
	return s.mutate(ctx, id, func(r *ProblemRecord) {
		r.SuccessRate = clamp01(r.SuccessRate*(1-s.config.FeedbackAlpha) + outcome*s.config.FeedbackAlpha)
	})
}

// mutate applies fn to the record under its per-record lock and writes the
// whole record back in one upsert, so the update is all-or-nothing.
func (s *Store) mutate(ctx context.Context, id string, fn func(*ProblemRecord)) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	doc, err := s.vectors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return err
	}

	record, err := decodeRecord(*doc)
	if err != nil {
		return err
	}

	fn(&record)
	record.UpdatedAt = timeNow().UTC()

	updated, err := encodeRecord(&record, doc.Embedding)
	if err != nil {
		return err
	}
	return s.vectors.Upsert(ctx, updated)
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*ProblemRecord, error) {
	doc, err := s.vectors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return nil, err
	}
	record, err := decodeRecord(*doc)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.vectors.Count(ctx)
}

// Stats are aggregate memory statistics.
type Stats struct {
	TotalProblems      int     `json:"total_problems"`
	AverageConfidence  float64 `json:"average_confidence"`
	AverageSuccessRate float64 `json:"average_success_rate"`
	TotalUsage         int     `json:"total_usage"`
}

// Stats aggregates confidence, success rate and usage across all records.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := tracer.Start(ctx, "memory.Stats")
	defer span.End()

	docs, err := s.vectors.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	stats := &Stats{}
	var confSum, successSum float64
	for _, doc := range docs {
		record, err := decodeRecord(doc)
		if err != nil {
			s.logger.Warn("skipping undecodable record in stats",
				zap.String("id", doc.ID),
				zap.Error(err),
			)
			continue
		}
		stats.TotalProblems++
		stats.TotalUsage += record.UsageCount
		confSum += record.Confidence
		successSum += record.SuccessRate
	}
	if stats.TotalProblems > 0 {
		stats.AverageConfidence = confSum / float64(stats.TotalProblems)
		stats.AverageSuccessRate = successSum / float64(stats.TotalProblems)
	}
	return stats, nil
}
