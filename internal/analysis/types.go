// Package analysis runs fresh troubleshooting analysis when problem memory
// has no trustworthy answer: an LLM reasoner and a web searcher fan out
// concurrently and partial results are accepted.
package analysis

import (
	"context"
	"errors"

	"github.com/smartfix-ai/braincore/internal/memory"
	"github.com/smartfix-ai/braincore/internal/query"
)

// Common errors for analysis operations.
var (
	// ErrAnalysisFailed means every external channel failed or timed out.
	ErrAnalysisFailed = errors.New("external analysis failed")

	// ErrNoReasoner means no LLM reasoner is configured.
	ErrNoReasoner = errors.New("no reasoner configured")

	// ErrNoSearcher means no web searcher is configured.
	ErrNoSearcher = errors.New("no searcher configured")
)

// Candidate is a reasoned troubleshooting analysis for one problem.
type Candidate struct {
	Issue      string                `json:"issue"`
	Causes     []string              `json:"possible_causes"`
	Confidence float64               `json:"confidence_score"`
	Steps      []memory.SolutionStep `json:"recommended_steps"`
}

// WebSource is one search hit supporting a solution.
type WebSource struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Reasoner produces a structured analysis of a problem description. The
// hints carry the device category and error codes extracted during
// normalization so the model sees the structured signal too.
type Reasoner interface {
	Analyze(ctx context.Context, problem string, hints query.Hints) (*Candidate, error)
	Name() string
}

// Searcher finds web results for a troubleshooting query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]WebSource, error)
}
