// Package config provides configuration loading for braincore.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level braincore configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Memory    MemoryConfig    `koanf:"memory"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Fusion    FusionConfig    `koanf:"fusion"`
	Feedback  FeedbackConfig  `koanf:"feedback"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: "fastembed" or "http".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the embedding API URL (http provider only).
	BaseURL string `koanf:"base_url"`

	// APIKey is the embedding API key (http provider, optional).
	APIKey string `koanf:"api_key"`

	// CacheDir is the model cache directory (fastembed provider only).
	CacheDir string `koanf:"cache_dir"`

	// Timeout bounds a single embedding call.
	Timeout time.Duration `koanf:"timeout"`
}

// MemoryConfig holds problem memory store settings.
type MemoryConfig struct {
	// Path is the directory for persistent vector storage.
	Path string `koanf:"path"`

	// Collection is the chromem collection name.
	Collection string `koanf:"collection"`

	// VectorSize is the embedding dimension for the whole store.
	// Must match the embedder's output dimension. A mismatch at runtime
	// is a fatal configuration error.
	VectorSize int `koanf:"vector_size"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`

	// TopK is the number of candidates retrieved per lookup.
	TopK int `koanf:"top_k"`

	// HighConfidence is the similarity above which a match is returned
	// directly without fresh analysis. Default 0.80.
	HighConfidence float64 `koanf:"high_confidence"`

	// WorthConsidering is the similarity above which a match still enters
	// fusion as an uncertain candidate. Default 0.60.
	WorthConsidering float64 `koanf:"worth_considering"`

	// MinSuccessRate is the floor below which a record is never returned
	// as a direct answer, regardless of similarity. Default 0.30.
	MinSuccessRate float64 `koanf:"min_success_rate"`

	// FeedbackAlpha is the EMA smoothing factor for success_rate updates.
	// Default 0.20.
	FeedbackAlpha float64 `koanf:"feedback_alpha"`

	// MatchNudge is the factor by which confidence moves toward the
	// observed similarity on every match. Default 0.10.
	MatchNudge float64 `koanf:"match_nudge"`

	// Seed loads the starter knowledge base into an empty store.
	Seed bool `koanf:"seed"`

	// LookupTimeout bounds a single similarity lookup.
	LookupTimeout time.Duration `koanf:"lookup_timeout"`

	// WriteTimeout bounds a single insert or update.
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// AnalysisConfig holds external analysis collaborator settings.
type AnalysisConfig struct {
	// Reasoner selects the generative backend: "openai", "gemini" or "" (disabled).
	Reasoner string `koanf:"reasoner"`

	// ReasonerModel is the model name for the generative backend.
	ReasonerModel string `koanf:"reasoner_model"`

	// ReasonerAPIKey authenticates the generative backend.
	ReasonerAPIKey string `koanf:"reasoner_api_key"`

	// SearchAPIKey authenticates the web search backend (SerpAPI).
	// Empty disables web search.
	SearchAPIKey string `koanf:"search_api_key"`

	// SearchResults is the number of web results requested per query.
	SearchResults int `koanf:"search_results"`

	// ReasonerTimeout bounds the generative analysis call.
	ReasonerTimeout time.Duration `koanf:"reasoner_timeout"`

	// SearchTimeout bounds the web search call.
	SearchTimeout time.Duration `koanf:"search_timeout"`
}

// FusionConfig holds solution fusion settings.
type FusionConfig struct {
	// ProvenanceDiscount scales down confidence for answers backed by an
	// uncertain memory candidate rather than a direct hit. Default 0.85.
	ProvenanceDiscount float64 `koanf:"provenance_discount"`

	// WebConfidence is the fixed confidence assigned to web-search
	// candidates, which report none of their own. Default 0.35.
	WebConfidence float64 `koanf:"web_confidence"`

	// MaxWebSources caps the external source list. Default 5.
	MaxWebSources int `koanf:"max_web_sources"`

	// LearnMinConfidence is the minimum generated-analysis confidence
	// required before a novel result is written back to memory. Default 0.70.
	LearnMinConfidence float64 `koanf:"learn_min_confidence"`
}

// FeedbackConfig holds feedback learner settings.
type FeedbackConfig struct {
	// TTL is how long a query_id stays resolvable for feedback.
	TTL time.Duration `koanf:"ttl"`

	// MaxEntries bounds the feedback index size.
	MaxEntries int `koanf:"max_entries"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8085
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "fastembed"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Embedding.Timeout == 0 {
		c.Embedding.Timeout = 10 * time.Second
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "~/.local/share/braincore/memory"
	}
	if c.Memory.Collection == "" {
		c.Memory.Collection = "problem_memory"
	}
	if c.Memory.VectorSize == 0 {
		c.Memory.VectorSize = 384
	}
	if c.Memory.TopK == 0 {
		c.Memory.TopK = 3
	}
	if c.Memory.HighConfidence == 0 {
		c.Memory.HighConfidence = 0.80
	}
	if c.Memory.WorthConsidering == 0 {
		c.Memory.WorthConsidering = 0.60
	}
	if c.Memory.MinSuccessRate == 0 {
		c.Memory.MinSuccessRate = 0.30
	}
	if c.Memory.FeedbackAlpha == 0 {
		c.Memory.FeedbackAlpha = 0.20
	}
	if c.Memory.MatchNudge == 0 {
		c.Memory.MatchNudge = 0.10
	}
	if c.Memory.LookupTimeout == 0 {
		c.Memory.LookupTimeout = 5 * time.Second
	}
	if c.Memory.WriteTimeout == 0 {
		c.Memory.WriteTimeout = 5 * time.Second
	}
	if c.Analysis.ReasonerModel == "" {
		c.Analysis.ReasonerModel = defaultReasonerModel(c.Analysis.Reasoner)
	}
	if c.Analysis.SearchResults == 0 {
		c.Analysis.SearchResults = 5
	}
	if c.Analysis.ReasonerTimeout == 0 {
		c.Analysis.ReasonerTimeout = 30 * time.Second
	}
	if c.Analysis.SearchTimeout == 0 {
		c.Analysis.SearchTimeout = 10 * time.Second
	}
	if c.Fusion.ProvenanceDiscount == 0 {
		c.Fusion.ProvenanceDiscount = 0.85
	}
	if c.Fusion.WebConfidence == 0 {
		c.Fusion.WebConfidence = 0.35
	}
	if c.Fusion.MaxWebSources == 0 {
		c.Fusion.MaxWebSources = 5
	}
	if c.Fusion.LearnMinConfidence == 0 {
		c.Fusion.LearnMinConfidence = 0.70
	}
	if c.Feedback.TTL == 0 {
		c.Feedback.TTL = 30 * time.Minute
	}
	if c.Feedback.MaxEntries == 0 {
		c.Feedback.MaxEntries = 10000
	}
}

func defaultReasonerModel(provider string) string {
	switch provider {
	case "gemini":
		return "gemini-1.5-flash"
	case "openai":
		return "gpt-4o-mini"
	}
	return ""
}

// Validate validates the configuration.
//
// Every blocking operation must carry a positive timeout; a missing timeout
// is rejected here rather than silently treated as "wait forever".
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Embedding.Provider {
	case "fastembed":
	case "http":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("%w: embedding.base_url required for http provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	if c.Memory.VectorSize <= 0 {
		return fmt.Errorf("%w: memory.vector_size must be positive", ErrInvalidConfig)
	}
	if c.Memory.TopK < 1 {
		return fmt.Errorf("%w: memory.top_k must be at least 1", ErrInvalidConfig)
	}
	for name, v := range map[string]float64{
		"memory.high_confidence":    c.Memory.HighConfidence,
		"memory.worth_considering":  c.Memory.WorthConsidering,
		"memory.min_success_rate":   c.Memory.MinSuccessRate,
		"memory.feedback_alpha":     c.Memory.FeedbackAlpha,
		"memory.match_nudge":        c.Memory.MatchNudge,
		"fusion.provenance_discount": c.Fusion.ProvenanceDiscount,
		"fusion.web_confidence":      c.Fusion.WebConfidence,
		"fusion.learn_min_confidence": c.Fusion.LearnMinConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Memory.WorthConsidering > c.Memory.HighConfidence {
		return fmt.Errorf("%w: memory.worth_considering must not exceed memory.high_confidence", ErrInvalidConfig)
	}
	switch c.Analysis.Reasoner {
	case "", "openai", "gemini":
	default:
		return fmt.Errorf("%w: unknown reasoner %q", ErrInvalidConfig, c.Analysis.Reasoner)
	}
	for name, d := range map[string]time.Duration{
		"embedding.timeout":         c.Embedding.Timeout,
		"memory.lookup_timeout":     c.Memory.LookupTimeout,
		"memory.write_timeout":      c.Memory.WriteTimeout,
		"analysis.reasoner_timeout": c.Analysis.ReasonerTimeout,
		"analysis.search_timeout":   c.Analysis.SearchTimeout,
		"feedback.ttl":              c.Feedback.TTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	return nil
}
