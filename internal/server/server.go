// Package server provides the HTTP API for braincore.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/smartfix-ai/braincore/internal/brain"
	"github.com/smartfix-ai/braincore/internal/memory"
	"github.com/smartfix-ai/braincore/internal/query"
	"github.com/smartfix-ai/braincore/internal/vectorstore"
)

// Server exposes the brain service over HTTP.
type Server struct {
	echo   *echo.Echo
	brain  *brain.Service
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server.
func NewServer(service *brain.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("brain service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		brain:  service,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/query", s.handleQuery)
	v1.POST("/feedback", s.handleFeedback)
	v1.GET("/brain/stats", s.handleStats)
	v1.POST("/brain/search", s.handleSearch)
	v1.POST("/brain/solutions", s.handleAddSolution)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleQuery resolves one troubleshooting query.
func (s *Server) handleQuery(c echo.Context) error {
	var in query.Input
	if err := c.Bind(&in); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	resp, err := s.brain.Resolve(c.Request().Context(), in)
	if err != nil {
		return s.mapError(err)
	}
	if resp.Solution == nil {
		return c.JSON(http.StatusOK, map[string]any{
			"query_id":   resp.QueryID,
			"query_text": resp.Query,
			"outcome":    "no_solution_found",
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// FeedbackRequest is the request body for POST /api/v1/feedback.
type FeedbackRequest struct {
	QueryID string `json:"query_id"`
	Success bool   `json:"success"`
	Score   int    `json:"score,omitempty"`
}

// handleFeedback accepts a feedback event. Always 202: feedback is
// best-effort and never fails the caller.
func (s *Server) handleFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid feedback request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QueryID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query_id field is required")
	}

	s.brain.Feedback(c.Request().Context(), req.QueryID, req.Success, req.Score)
	return c.NoContent(http.StatusAccepted)
}

// handleStats returns aggregate memory statistics.
func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.brain.Stats(c.Request().Context())
	if err != nil {
		return s.mapError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// SearchRequest is the request body for POST /api/v1/brain/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResult is one match in a search response.
type SearchResult struct {
	Record     memory.ProblemRecord `json:"record"`
	Similarity float64              `json:"similarity"`
}

// handleSearch finds stored problems similar to the given text.
func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid search request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	matches, err := s.brain.SearchMemory(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return s.mapError(err)
	}

	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = SearchResult{Record: m.Record, Similarity: m.Similarity}
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

// handleAddSolution inserts a curated problem record.
func (s *Server) handleAddSolution(c echo.Context) error {
	var record memory.ProblemRecord
	if err := c.Bind(&record); err != nil {
		s.logger.Warn("invalid solution request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	stored, err := s.brain.AddSolution(c.Request().Context(), record)
	if err != nil {
		if errors.Is(err, memory.ErrInvalidRecord) || errors.Is(err, memory.ErrInvalidSteps) ||
			errors.Is(err, memory.ErrInvalidConfidence) || errors.Is(err, memory.ErrEmptyProblemText) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return s.mapError(err)
	}
	return c.JSON(http.StatusCreated, stored)
}

// mapError translates pipeline errors into HTTP status codes.
func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, query.ErrInvalidInputKind):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, vectorstore.ErrStoreUnavailable):
		s.logger.Error("memory store unavailable", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory store unavailable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
