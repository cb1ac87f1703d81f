// Package vectorstore provides vector storage for the problem memory.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid vector store configuration")

	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrDimensionMismatch is returned when a vector's dimensionality does
	// not match the store's configured dimension. The dimension is fixed at
	// store initialization; a mismatch is a configuration error, never a
	// per-record condition to skip.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreUnavailable indicates the backing store cannot be reached or
	// has failed. Fatal for the current request only.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// Document is a stored vector with its text and metadata.
type Document struct {
	// ID is the unique document identifier.
	ID string

	// Content is the document text.
	Content string

	// Embedding is the precomputed vector for Content. Required: this
	// store never embeds on its own.
	Embedding []float32

	// Metadata carries additional string key-value pairs.
	Metadata map[string]string
}

// Result is a similarity search hit.
type Result struct {
	Document

	// Similarity is the cosine similarity to the query vector, in [-1,1].
	Similarity float32
}

// Store is the interface for vector storage operations.
//
// Implementations must be safe for concurrent use. Writes to a document are
// atomic: a query never observes a partially written document.
type Store interface {
	// Upsert inserts a document or replaces the document with the same ID.
	Upsert(ctx context.Context, doc Document) error

	// Query returns up to k documents ordered by descending cosine
	// similarity to the given vector.
	Query(ctx context.Context, vector []float32, k int) ([]Result, error)

	// Get returns the document with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns every stored document.
	List(ctx context.Context) ([]Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
