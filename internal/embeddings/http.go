package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPConfig holds configuration for the HTTP embedding provider.
type HTTPConfig struct {
	// BaseURL is the base URL of a TEI-compatible embedding service.
	BaseURL string

	// Model is the embedding model name, used for dimension detection.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey string
}

// Validate validates the configuration.
func (c HTTPConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	return nil
}

// HTTPProvider generates embeddings via a TEI-compatible HTTP service.
// Determinism is delegated to the service: a fixed model serving a fixed
// revision returns identical vectors for identical input.
type HTTPProvider struct {
	config    HTTPConfig
	client    *http.Client
	dimension int
}

// NewHTTPProvider creates an HTTP embedding provider.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// no client-level timeout: callers bound each request through ctx
	return &HTTPProvider{
		config:    cfg,
		client:    &http.Client{},
		dimension: dimensionForModel(cfg.Model),
	}, nil
}

// dimensionForModel returns the embedding dimension for a model name.
// Falls back to 384, the dimension of the default bge-small model.
func dimensionForModel(model string) int {
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	default:
		return 384
	}
}

// embedRequest is the request body for the TEI embed endpoint.
type embedRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *HTTPProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	return p.embed(ctx, texts)
}

// EmbedQuery generates an embedding for a single query.
func (p *HTTPProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", ErrEmbeddingUnavailable, len(vectors))
	}
	return vectors[0], nil
}

func (p *HTTPProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimSuffix(p.config.BaseURL, "/") + "/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingUnavailable, len(texts), len(vectors))
	}
	return vectors, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op for the HTTP provider.
func (p *HTTPProvider) Close() error { return nil }
