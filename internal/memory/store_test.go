package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfix-ai/braincore/internal/vectorstore"
)

func newTestMemory(t *testing.T, dim int) *Store {
	t.Helper()
	vectors, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       t.TempDir(),
		Collection: "test_memory",
		VectorSize: dim,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	store, err := NewStore(vectors, Config{}, nil)
	require.NoError(t, err)
	return store
}

func testRecord(text string) ProblemRecord {
	return ProblemRecord{
		ProblemText:    text,
		ProblemType:    "display",
		DeviceCategory: "television",
		ErrorCodes:     []string{"E404"},
		Steps: []SolutionStep{
			{Number: 1, Description: "Check the cable"},
			{Number: 2, Description: "Restart the device"},
		},
		Confidence:  0.8,
		SuccessRate: 0.7,
	}
}

func unitVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestStore_InsertAndLookupRoundTrip(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	vec := unitVector(4, 0)
	stored, err := store.Insert(ctx, testRecord("tv screen is black"), vec)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.False(t, stored.UpdatedAt.IsZero())

	matches, err := store.Lookup(ctx, vec, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
	assert.Equal(t, stored.ID, matches[0].Record.ID)
	assert.Equal(t, "tv screen is black", matches[0].Record.ProblemText)
	assert.Equal(t, []string{"E404"}, matches[0].Record.ErrorCodes)
	assert.Equal(t, stored.Steps, matches[0].Record.Steps)
	assert.InDelta(t, 0.8, matches[0].Record.Confidence, 1e-9)
}

func TestStore_InsertAssignsID(t *testing.T) {
	store := newTestMemory(t, 4)

	a, err := store.Insert(context.Background(), testRecord("first"), unitVector(4, 0))
	require.NoError(t, err)
	b, err := store.Insert(context.Background(), testRecord("second"), unitVector(4, 1))
	require.NoError(t, err)

	assert.Contains(t, a.ID, "prob_")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_InsertClampsScores(t *testing.T) {
	store := newTestMemory(t, 4)

	record := testRecord("scores out of range")
	record.Confidence = 1.7
	record.SuccessRate = -0.3

	stored, err := store.Insert(context.Background(), record, unitVector(4, 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.Confidence)
	assert.Equal(t, 0.0, stored.SuccessRate)
}

func TestStore_InsertRejectsInvalidRecord(t *testing.T) {
	store := newTestMemory(t, 4)

	empty := testRecord("")
	_, err := store.Insert(context.Background(), empty, unitVector(4, 0))
	assert.ErrorIs(t, err, ErrEmptyProblemText)

	gapped := testRecord("steps with a gap")
	gapped.Steps = []SolutionStep{
		{Number: 1, Description: "first"},
		{Number: 3, Description: "third"},
	}
	_, err = store.Insert(context.Background(), gapped, unitVector(4, 0))
	assert.ErrorIs(t, err, ErrInvalidSteps)
}

func TestStore_UpdateOnMatch(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	stored, err := store.Insert(ctx, testRecord("confidence nudge"), unitVector(4, 0))
	require.NoError(t, err)

	// confidence 0.8, similarity 0.9, nudge 0.1: 0.8 + 0.1*(0.9-0.8) = 0.81
	require.NoError(t, store.UpdateOnMatch(ctx, stored.ID, 0.9))

	got, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
	assert.InDelta(t, 0.81, got.Confidence, 1e-9)

	// a lower observed similarity pulls confidence down
	require.NoError(t, store.UpdateOnMatch(ctx, stored.ID, 0.5))
	got, err = store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
	assert.InDelta(t, 0.779, got.Confidence, 1e-9)
}

func TestStore_UpdateOnFeedback(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	record := testRecord("feedback ema")
	record.SuccessRate = 0.8
	stored, err := store.Insert(ctx, record, unitVector(4, 0))
	require.NoError(t, err)

	// 0.8*0.8 + 0*0.2 = 0.64
	require.NoError(t, store.UpdateOnFeedback(ctx, stored.ID, false))
	got, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.64, got.SuccessRate, 1e-9)

	// 0.64*0.8 + 1*0.2 = 0.712
	require.NoError(t, store.UpdateOnFeedback(ctx, stored.ID, true))
	got, err = store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.712, got.SuccessRate, 1e-9)
}

func TestStore_FeedbackKeepsRateInBounds(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	record := testRecord("bounded success rate")
	record.SuccessRate = 0.0
	stored, err := store.Insert(ctx, record, unitVector(4, 0))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, store.UpdateOnFeedback(ctx, stored.ID, true))
	}
	got, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.SuccessRate, 1.0)
	assert.Greater(t, got.SuccessRate, 0.9)
}

func TestStore_UpdateMissingRecord(t *testing.T) {
	store := newTestMemory(t, 4)

	err := store.UpdateOnFeedback(context.Background(), "prob_missing", true)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	err = store.UpdateOnMatch(context.Background(), "prob_missing", 0.9)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStore_UpdatePreservesEmbedding(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	vec := unitVector(4, 2)
	stored, err := store.Insert(ctx, testRecord("embedding survives updates"), vec)
	require.NoError(t, err)

	require.NoError(t, store.UpdateOnFeedback(ctx, stored.ID, true))

	matches, err := store.Lookup(ctx, vec, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
}

func TestSortMatches_TieBreaks(t *testing.T) {
	now := time.Now().UTC()
	base := func(id string) ProblemRecord {
		r := testRecord("tie break " + id)
		r.ID = id
		r.SuccessRate = 0.5
		r.UsageCount = 10
		r.UpdatedAt = now
		return r
	}

	t.Run("similarity wins first", func(t *testing.T) {
		matches := []Match{
			{Record: base("a"), Similarity: 0.70},
			{Record: base("b"), Similarity: 0.90},
		}
		sortMatches(matches)
		assert.Equal(t, "b", matches[0].Record.ID)
	})

	t.Run("success rate breaks similarity ties", func(t *testing.T) {
		low, high := base("low"), base("high")
		low.SuccessRate, high.SuccessRate = 0.4, 0.9
		matches := []Match{
			{Record: low, Similarity: 0.80},
			{Record: high, Similarity: 0.80},
		}
		sortMatches(matches)
		assert.Equal(t, "high", matches[0].Record.ID)
	})

	t.Run("usage count breaks success rate ties", func(t *testing.T) {
		rare, common := base("rare"), base("common")
		rare.UsageCount, common.UsageCount = 1, 100
		matches := []Match{
			{Record: rare, Similarity: 0.80},
			{Record: common, Similarity: 0.80},
		}
		sortMatches(matches)
		assert.Equal(t, "common", matches[0].Record.ID)
	})

	t.Run("recency breaks usage ties", func(t *testing.T) {
		old, fresh := base("old"), base("fresh")
		old.UpdatedAt = now.Add(-time.Hour)
		matches := []Match{
			{Record: old, Similarity: 0.80},
			{Record: fresh, Similarity: 0.80},
		}
		sortMatches(matches)
		assert.Equal(t, "fresh", matches[0].Record.ID)
	})

	t.Run("id is the final tie break", func(t *testing.T) {
		matches := []Match{
			{Record: base("prob_b"), Similarity: 0.80},
			{Record: base("prob_a"), Similarity: 0.80},
		}
		sortMatches(matches)
		assert.Equal(t, "prob_a", matches[0].Record.ID)
	})

	t.Run("near-equal similarities count as tied", func(t *testing.T) {
		worse, better := base("worse"), base("better")
		worse.SuccessRate, better.SuccessRate = 0.3, 0.9
		matches := []Match{
			{Record: worse, Similarity: 0.8000000001},
			{Record: better, Similarity: 0.8},
		}
		sortMatches(matches)
		assert.Equal(t, "better", matches[0].Record.ID)
	})
}

func TestStore_Stats(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalProblems)
	assert.Equal(t, 0.0, empty.AverageConfidence)

	a := testRecord("first problem")
	a.Confidence, a.SuccessRate, a.UsageCount = 0.8, 0.6, 3
	b := testRecord("second problem")
	b.Confidence, b.SuccessRate, b.UsageCount = 0.6, 0.8, 7

	_, err = store.Insert(ctx, a, unitVector(4, 0))
	require.NoError(t, err)
	_, err = store.Insert(ctx, b, unitVector(4, 1))
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProblems)
	assert.Equal(t, 10, stats.TotalUsage)
	assert.InDelta(t, 0.7, stats.AverageConfidence, 1e-9)
	assert.InDelta(t, 0.7, stats.AverageSuccessRate, 1e-9)
}

func TestStore_ConcurrentFeedback(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	record := testRecord("concurrent updates")
	record.UsageCount = 0
	stored, err := store.Insert(ctx, record, unitVector(4, 0))
	require.NoError(t, err)

	const workers = 8
	done := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			done <- store.UpdateOnMatch(ctx, stored.ID, 0.9)
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-done)
	}

	got, err := store.Get(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, got.UsageCount)
}
