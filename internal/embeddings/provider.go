// Package embeddings converts normalized query text into fixed-length
// vectors for similarity search.
//
// Providers must be deterministic: identical input text yields an identical
// vector. This is required for reproducible lookups and safe caching.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embedding configuration")

	// ErrEmbeddingUnavailable indicates the embedding backend is
	// unreachable. This is retryable: callers should treat the current
	// query as a guaranteed memory miss and continue, not fail the request.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
)

// Provider generates vector embeddings from text.
type Provider interface {
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension for the configured model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type: "fastembed" or "http".
	Provider string

	// Model is the embedding model name.
	Model string

	// BaseURL is the embedding API URL (http provider only).
	BaseURL string

	// APIKey authenticates the embedding API (http provider, optional).
	APIKey string

	// CacheDir is the model cache directory (fastembed provider only).
	CacheDir string
}

// NewProvider creates an embedding provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "http":
		return NewHTTPProvider(HTTPConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
