package memory

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder derives deterministic vectors from text hashes.
type stubEmbedder struct {
	dim int
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *stubEmbedder) Dimension() int { return e.dim }

func (e *stubEmbedder) Close() error { return nil }

func (e *stubEmbedder) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, e.dim)
	for i := range v {
		bits := binary.LittleEndian.Uint32(sum[(i*4)%28:])
		v[i] = float32(bits%1000)/1000 - 0.5
	}
	return v
}

func TestSeed_PopulatesEmptyStore(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, store, &stubEmbedder{dim: 4}, nil))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(seedRecords), count)
}

func TestSeed_SkipsNonEmptyStore(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()

	_, err := store.Insert(ctx, testRecord("already learned"), unitVector(4, 0))
	require.NoError(t, err)

	require.NoError(t, Seed(ctx, store, &stubEmbedder{dim: 4}, nil))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeed_RecordsAreSearchable(t *testing.T) {
	store := newTestMemory(t, 4)
	ctx := context.Background()
	embedder := &stubEmbedder{dim: 4}

	require.NoError(t, Seed(ctx, store, embedder, nil))

	query, err := embedder.EmbedQuery(ctx, "tv screen is black but power light is on")
	require.NoError(t, err)

	matches, err := store.Lookup(ctx, query, 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "tv screen is black but power light is on", matches[0].Record.ProblemText)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-5)
	require.NotEmpty(t, matches[0].Record.Steps)
	assert.Equal(t, 1, matches[0].Record.Steps[0].Number)
}
