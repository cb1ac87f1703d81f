// Package fusion merges memory matches, reasoned analysis and web search
// results into one ranked solution.
package fusion

import (
	"errors"
	"sort"
	"strings"

	"github.com/smartfix-ai/braincore/internal/analysis"
	"github.com/smartfix-ai/braincore/internal/memory"
)

// ErrNoSolution means no candidate from any source was usable. This is a
// reportable business outcome, not a system failure.
var ErrNoSolution = errors.New("no solution found")

// Source tags identify where a solution (or part of one) came from.
const (
	SourceMemory   = "memory"
	SourceAnalysis = "ai_analysis"
	SourceWeb      = "web_search"
)

// Config holds fusion tuning.
type Config struct {
	// ProvenanceDiscount scales down confidence carried by an uncertain
	// memory match, as opposed to a direct hit.
	ProvenanceDiscount float64

	// WebConfidence is the flat confidence assigned to bare web results.
	WebConfidence float64

	// MaxWebSources caps the external sources attached to a solution.
	MaxWebSources int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.ProvenanceDiscount == 0 {
		c.ProvenanceDiscount = 0.85
	}
	if c.WebConfidence == 0 {
		c.WebConfidence = 0.35
	}
	if c.MaxWebSources == 0 {
		c.MaxWebSources = 5
	}
}

// Input carries everything available for one uncertain query. Any field
// may be empty.
type Input struct {
	// Query is the canonical problem text, used as the issue summary when
	// no reasoned candidate names one.
	Query string

	// Memory is the best uncertain match from problem memory, if any.
	Memory *memory.Match

	// Reasoned is the LLM analysis, if that channel succeeded.
	Reasoned *analysis.Candidate

	// Web holds web search results, if that channel succeeded.
	Web []analysis.WebSource
}

// Solution is the fused answer returned to the caller.
type Solution struct {
	Issue      string                `json:"issue"`
	Causes     []string              `json:"possible_causes"`
	Confidence float64               `json:"confidence_score"`
	Steps      []memory.SolutionStep `json:"recommended_steps"`
	Sources    []analysis.WebSource  `json:"external_sources"`

	// Source tags the highest-confidence contributor.
	Source string `json:"source"`

	// RecordID is set when a memory record contributed, so feedback can
	// find its way back.
	RecordID string `json:"-"`
}

// candidate is one scored contributor during fusion.
type candidate struct {
	source     string
	confidence float64
	issue      string
	causes     []string
	steps      []memory.SolutionStep
	recordID   string
}

// Engine fuses candidate solutions. Pure computation, no I/O.
type Engine struct {
	config Config
}

// NewEngine creates a fusion engine.
func NewEngine(config Config) *Engine {
	config.ApplyDefaults()
	return &Engine{config: config}
}

// Fuse merges the available candidates into one solution, or returns
// ErrNoSolution when nothing usable arrived.
func (e *Engine) Fuse(in Input) (*Solution, error) {
	candidates := e.collect(in)
	if len(candidates) == 0 {
		return nil, ErrNoSolution
	}

	// highest confidence first; collect() order breaks exact ties,
	// keeping memory ahead of web for equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	best := candidates[0]
	solution := &Solution{
		Issue:      best.issue,
		Confidence: best.confidence,
		Source:     best.source,
	}
	if solution.Issue == "" {
		solution.Issue = in.Query
	}

	solution.Causes = unionCauses(candidates)
	solution.Steps = bestSteps(candidates)
	solution.Sources = dedupeSources(in.Web, e.config.MaxWebSources)

	for _, c := range candidates {
		if c.recordID != "" {
			solution.RecordID = c.recordID
			break
		}
	}

	return solution, nil
}

// collect scores each present source into a candidate.
func (e *Engine) collect(in Input) []candidate {
	var candidates []candidate

	if in.Memory != nil {
		record := in.Memory.Record
		// an uncertain match is trusted in proportion to how similar it
		// looks and how well it has worked before
		score := e.config.ProvenanceDiscount * in.Memory.Similarity *
			(record.Confidence + record.SuccessRate) / 2
		candidates = append(candidates, candidate{
			source:     SourceMemory,
			confidence: clamp01(score),
			issue:      record.ProblemText,
			steps:      record.Steps,
			recordID:   record.ID,
		})
	}

	if in.Reasoned != nil {
		candidates = append(candidates, candidate{
			source:     SourceAnalysis,
			confidence: clamp01(in.Reasoned.Confidence),
			issue:      in.Reasoned.Issue,
			causes:     in.Reasoned.Causes,
			steps:      in.Reasoned.Steps,
		})
	}

	if len(in.Web) > 0 {
		candidates = append(candidates, candidate{
			source:     SourceWeb,
			confidence: clamp01(e.config.WebConfidence),
		})
	}

	return candidates
}

// unionCauses merges causes across candidates, deduplicating by
// case-insensitive equality and keeping the highest-confidence source's
// causes first.
func unionCauses(candidates []candidate) []string {
	var causes []string
	seen := make(map[string]struct{})
	for _, c := range candidates {
		for _, cause := range c.causes {
			key := strings.ToLower(strings.TrimSpace(cause))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			causes = append(causes, cause)
		}
	}
	return causes
}

// bestSteps takes the step list of the highest-confidence candidate that
// has one, renumbered 1..n. Steps are never interleaved across sources.
func bestSteps(candidates []candidate) []memory.SolutionStep {
	for _, c := range candidates {
		if len(c.steps) == 0 {
			continue
		}
		steps := make([]memory.SolutionStep, len(c.steps))
		for i, step := range c.steps {
			step.Number = i + 1
			steps[i] = step
		}
		return steps
	}
	return nil
}

// dedupeSources drops repeated URLs and caps the list.
func dedupeSources(sources []analysis.WebSource, limit int) []analysis.WebSource {
	var out []analysis.WebSource
	seen := make(map[string]struct{})
	for _, src := range sources {
		if len(out) == limit {
			break
		}
		if _, dup := seen[src.URL]; dup {
			continue
		}
		seen[src.URL] = struct{}{}
		out = append(out, src)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
