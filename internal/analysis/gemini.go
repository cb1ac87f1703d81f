package analysis

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/smartfix-ai/braincore/internal/query"
)

// GeminiReasoner analyzes problems with a Gemini model.
type GeminiReasoner struct {
	client *genai.Client
	model  string
}

// NewGeminiReasoner creates a Gemini-backed reasoner.
func NewGeminiReasoner(ctx context.Context, apiKey, model string) (*GeminiReasoner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", ErrNoReasoner)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-pro"
	}

	return &GeminiReasoner{
		client: client,
		model:  model,
	}, nil
}

func (r *GeminiReasoner) Name() string { return "gemini" }

// Analyze asks the model for a structured analysis of the problem.
func (r *GeminiReasoner) Analyze(ctx context.Context, problem string, hints query.Hints) (*Candidate, error) {
	model := r.client.GenerativeModel(r.model)
	resp, err := model.GenerateContent(ctx, genai.Text(analysisPrompt(problem, hints)))
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini completion returned no candidates")
	}

	var reply string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			reply += string(text)
		}
	}
	return parseCandidate(reply)
}

// Close releases the underlying client.
func (r *GeminiReasoner) Close() error {
	return r.client.Close()
}
