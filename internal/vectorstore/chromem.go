package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Collection is the collection name.
	// Default: "problem_memory"
	Collection string

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	VectorSize int

	// Compress enables gzip compression for stored data.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.local/share/braincore/memory"
	}
	if c.Collection == "" {
		c.Collection = "problem_memory"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go, an embeddable pure-Go
// vector database with persistence to disk.
//
// All documents arrive with precomputed embeddings; the embedding function
// handed to chromem only fires for documents without one, which is a bug
// here, so it fails loudly.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *zap.Logger
}

// NewChromemStore creates a ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: opening chromem DB: %v", ErrStoreUnavailable, err)
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %s: %v", ErrStoreUnavailable, config.Collection, err)
	}

	logger.Info("chromem store initialized",
		zap.String("path", path),
		zap.String("collection", config.Collection),
		zap.Int("vector_size", config.VectorSize),
		zap.Bool("compress", config.Compress),
	)

	return &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
	}, nil
}

// rejectEmbedding is the chromem embedding function. Documents must carry
// precomputed embeddings, so chromem should never call it.
func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: document added without precomputed embedding", ErrInvalidConfig)
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Upsert inserts or replaces a document.
func (s *ChromemStore) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID required", ErrInvalidConfig)
	}
	if len(doc.Embedding) != s.config.VectorSize {
		return fmt.Errorf("%w: got %d, store configured for %d",
			ErrDimensionMismatch, len(doc.Embedding), s.config.VectorSize)
	}

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("%w: adding document %s: %v", ErrStoreUnavailable, doc.ID, err)
	}
	return nil
}

// Query returns up to k documents by descending cosine similarity.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if len(vector) != s.config.VectorSize {
		return nil, fmt.Errorf("%w: got %d, store configured for %d",
			ErrDimensionMismatch, len(vector), s.config.VectorSize)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1", ErrInvalidConfig)
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	hits, err := s.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrStoreUnavailable, err)
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{
			Document: Document{
				ID:        hit.ID,
				Content:   hit.Content,
				Embedding: hit.Embedding,
				Metadata:  hit.Metadata,
			},
			Similarity: hit.Similarity,
		}
	}
	return results, nil
}

// Get returns the document with the given ID.
func (s *ChromemStore) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: doc.Embedding,
		Metadata:  doc.Metadata,
	}, nil
}

// List returns every stored document.
//
// chromem has no enumeration API, so the store queries with a fixed probe
// vector and k equal to the collection size, which returns every document.
func (s *ChromemStore) List(ctx context.Context) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	probe := make([]float32, s.config.VectorSize)
	probe[0] = 1

	hits, err := s.collection.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list failed: %v", ErrStoreUnavailable, err)
	}

	docs := make([]Document, len(hits))
	for i, hit := range hits {
		docs[i] = Document{
			ID:        hit.ID,
			Content:   hit.Content,
			Embedding: hit.Embedding,
			Metadata:  hit.Metadata,
		}
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close releases resources. chromem persists on every write, so there is
// nothing to flush.
func (s *ChromemStore) Close() error {
	return nil
}
