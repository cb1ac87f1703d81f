package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartfix-ai/braincore/internal/memory"
	"github.com/smartfix-ai/braincore/internal/query"
)

// analysisPrompt asks the model for a JSON analysis of the problem,
// including the normalizer's structured hints when present.
func analysisPrompt(problem string, hints query.Hints) string {
	var extra strings.Builder
	if hints.DeviceCategory != "" {
		fmt.Fprintf(&extra, "\nDevice Type: %s", hints.DeviceCategory)
	}
	if len(hints.ErrorCodes) > 0 {
		fmt.Fprintf(&extra, "\nError Codes: %s", strings.Join(hints.ErrorCodes, ", "))
	}

	return fmt.Sprintf(`You are an AI troubleshooting assistant. Analyze the following technical issue description:

%q
%s
Provide a structured analysis in JSON format with the following fields:
- issue: A concise summary of the problem
- possible_causes: List of potential causes
- confidence_score: A number between 0 and 1 indicating confidence in your analysis
- recommended_steps: List of troubleshooting steps, each with a step_number and description

Return ONLY the JSON object, no additional text.`, problem, extra.String())
}

// rawAnalysis mirrors the model's JSON output. Steps stay raw because
// models return either plain strings or step objects.
type rawAnalysis struct {
	Issue            string            `json:"issue"`
	PossibleCauses   []string          `json:"possible_causes"`
	ConfidenceScore  float64           `json:"confidence_score"`
	RecommendedSteps []json.RawMessage `json:"recommended_steps"`
}

// parseCandidate extracts a Candidate from an LLM reply, tolerating
// markdown code fences and loosely typed steps.
func parseCandidate(reply string) (*Candidate, error) {
	body := stripFences(reply)

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("parsing analysis reply: %w", err)
	}
	if raw.Issue == "" {
		return nil, fmt.Errorf("parsing analysis reply: missing issue")
	}

	if raw.ConfidenceScore < 0 {
		raw.ConfidenceScore = 0
	}
	if raw.ConfidenceScore > 1 {
		raw.ConfidenceScore = 1
	}

	candidate := &Candidate{
		Issue:      raw.Issue,
		Causes:     raw.PossibleCauses,
		Confidence: raw.ConfidenceScore,
	}

	// number by appended position so unparseable entries leave no gaps
	for _, rawStep := range raw.RecommendedSteps {
		var text string
		if err := json.Unmarshal(rawStep, &text); err == nil {
			candidate.Steps = append(candidate.Steps, memory.SolutionStep{
				Number:      len(candidate.Steps) + 1,
				Description: text,
			})
			continue
		}
		var step memory.SolutionStep
		if err := json.Unmarshal(rawStep, &step); err != nil || step.Description == "" {
			continue
		}
		step.Number = len(candidate.Steps) + 1
		candidate.Steps = append(candidate.Steps, step)
	}

	return candidate, nil
}

// stripFences removes a surrounding markdown code block, if any.
func stripFences(reply string) string {
	body := strings.TrimSpace(reply)
	if after, found := strings.CutPrefix(body, "```json"); found {
		body = after
	} else if after, found := strings.CutPrefix(body, "```"); found {
		body = after
	} else {
		return body
	}
	if before, _, found := strings.Cut(body, "```"); found {
		body = before
	}
	return strings.TrimSpace(body)
}
