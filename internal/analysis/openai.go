package analysis

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smartfix-ai/braincore/internal/query"
)

// OpenAIReasoner analyzes problems with an OpenAI chat model.
type OpenAIReasoner struct {
	client *openai.Client
	model  string
}

// NewOpenAIReasoner creates an OpenAI-backed reasoner. baseURL is optional
// and allows pointing at OpenAI-compatible servers.
func NewOpenAIReasoner(apiKey, baseURL, model string) (*OpenAIReasoner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key is required", ErrNoReasoner)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIReasoner{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

func (r *OpenAIReasoner) Name() string { return "openai" }

// Analyze asks the model for a structured analysis of the problem.
func (r *OpenAIReasoner) Analyze(ctx context.Context, problem string, hints query.Hints) (*Candidate, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(problem, hints)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion returned no choices")
	}

	return parseCandidate(resp.Choices[0].Message.Content)
}
