// Braind is the SmartFix brain core daemon.
//
// It answers troubleshooting queries from a persistent problem memory,
// falls back to LLM reasoning and web search when memory is uncertain,
// and learns from resolved queries and user feedback.
//
// Configuration is loaded from an optional YAML file plus BRAINCORE_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	braind
//
//	# Start with a config file
//	braind --config /etc/braincore/config.yaml
//
//	# Configure via environment
//	BRAINCORE_SERVER_PORT=9090 braind
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/analysis"
	"github.com/smartfix-ai/braincore/internal/brain"
	"github.com/smartfix-ai/braincore/internal/config"
	"github.com/smartfix-ai/braincore/internal/embeddings"
	"github.com/smartfix-ai/braincore/internal/feedback"
	"github.com/smartfix-ai/braincore/internal/fusion"
	"github.com/smartfix-ai/braincore/internal/logging"
	"github.com/smartfix-ai/braincore/internal/memory"
	"github.com/smartfix-ai/braincore/internal/server"
	"github.com/smartfix-ai/braincore/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "braind",
		Short: "SmartFix brain core daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, configPath)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("braind\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", gitCommit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run wires the pipeline and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting braind",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("reasoner", cfg.Analysis.Reasoner),
	)

	embedder, err := embeddings.NewProvider(embeddings.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
		CacheDir: cfg.Embedding.CacheDir,
	})
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	defer func() {
		_ = embedder.Close()
	}()

	vectors, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:       cfg.Memory.Path,
		Collection: cfg.Memory.Collection,
		VectorSize: cfg.Memory.VectorSize,
		Compress:   cfg.Memory.Compress,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer func() {
		_ = vectors.Close()
	}()

	store, err := memory.NewStore(vectors, memory.Config{
		FeedbackAlpha: cfg.Memory.FeedbackAlpha,
		MatchNudge:    cfg.Memory.MatchNudge,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}

	if cfg.Memory.Seed {
		if err := memory.Seed(ctx, store, embedder, logger); err != nil {
			return fmt.Errorf("seeding problem memory: %w", err)
		}
	}

	orchestrator, err := buildOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	engine := fusion.NewEngine(fusion.Config{
		ProvenanceDiscount: cfg.Fusion.ProvenanceDiscount,
		WebConfidence:      cfg.Fusion.WebConfidence,
		MaxWebSources:      cfg.Fusion.MaxWebSources,
	})

	learner := feedback.NewLearner(store, feedback.Config{
		TTL:        cfg.Feedback.TTL,
		MaxEntries: cfg.Feedback.MaxEntries,
	}, logger)

	service, err := brain.NewService(embedder, store, orchestrator, engine, learner, brain.Config{
		TopK: cfg.Memory.TopK,
		Thresholds: memory.Thresholds{
			HighConfidence:   cfg.Memory.HighConfidence,
			WorthConsidering: cfg.Memory.WorthConsidering,
			MinSuccessRate:   cfg.Memory.MinSuccessRate,
		},
		EmbedTimeout:       cfg.Embedding.Timeout,
		LookupTimeout:      cfg.Memory.LookupTimeout,
		WriteTimeout:       cfg.Memory.WriteTimeout,
		LearnMinConfidence: cfg.Fusion.LearnMinConfidence,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating brain service: %w", err)
	}

	srv, err := server.NewServer(service, logger, &server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildOrchestrator assembles the external analysis channels from
// configuration. Returns nil when neither channel is configured, in which
// case the service answers from memory alone.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*analysis.Orchestrator, error) {
	var reasoner analysis.Reasoner
	switch cfg.Analysis.Reasoner {
	case "openai":
		r, err := analysis.NewOpenAIReasoner(cfg.Analysis.ReasonerAPIKey, "", cfg.Analysis.ReasonerModel)
		if err != nil {
			return nil, fmt.Errorf("creating openai reasoner: %w", err)
		}
		reasoner = r
	case "gemini":
		r, err := analysis.NewGeminiReasoner(ctx, cfg.Analysis.ReasonerAPIKey, cfg.Analysis.ReasonerModel)
		if err != nil {
			return nil, fmt.Errorf("creating gemini reasoner: %w", err)
		}
		reasoner = r
	case "":
	}

	var searcher analysis.Searcher
	if cfg.Analysis.SearchAPIKey != "" {
		s, err := analysis.NewSerpSearcher(cfg.Analysis.SearchAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("creating web searcher: %w", err)
		}
		searcher = s
	}

	if reasoner == nil && searcher == nil {
		logger.Warn("no external analysis collaborators configured, answering from memory alone")
		return nil, nil
	}

	return analysis.NewOrchestrator(reasoner, searcher, analysis.Config{
		ReasonerTimeout: cfg.Analysis.ReasonerTimeout,
		SearchTimeout:   cfg.Analysis.SearchTimeout,
		SearchResults:   cfg.Analysis.SearchResults,
	}, logger)
}
