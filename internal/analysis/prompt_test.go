package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfix-ai/braincore/internal/query"
)

func TestAnalysisPrompt_CarriesHints(t *testing.T) {
	prompt := analysisPrompt("tv screen is black", query.Hints{
		DeviceCategory: "television",
		ErrorCodes:     []string{"E102", "ERR-42"},
	})

	assert.Contains(t, prompt, `"tv screen is black"`)
	assert.Contains(t, prompt, "Device Type: television")
	assert.Contains(t, prompt, "Error Codes: E102, ERR-42")
}

func TestAnalysisPrompt_NoHints(t *testing.T) {
	prompt := analysisPrompt("tv screen is black", query.Hints{})

	assert.NotContains(t, prompt, "Device Type:")
	assert.NotContains(t, prompt, "Error Codes:")
}

func TestParseCandidate_PlainJSON(t *testing.T) {
	reply := `{
		"issue": "TV backlight failure",
		"possible_causes": ["Failed LED strip"],
		"confidence_score": 0.85,
		"recommended_steps": [
			{"step_number": 1, "description": "Shine a flashlight at the screen"},
			{"step_number": 2, "description": "Check the power board"}
		]
	}`

	candidate, err := parseCandidate(reply)
	require.NoError(t, err)
	assert.Equal(t, "TV backlight failure", candidate.Issue)
	assert.Equal(t, []string{"Failed LED strip"}, candidate.Causes)
	assert.Equal(t, 0.85, candidate.Confidence)
	require.Len(t, candidate.Steps, 2)
	assert.Equal(t, 1, candidate.Steps[0].Number)
	assert.Equal(t, "Check the power board", candidate.Steps[1].Description)
}

func TestParseCandidate_JSONFence(t *testing.T) {
	reply := "```json\n{\"issue\": \"fenced\", \"confidence_score\": 0.5}\n```"

	candidate, err := parseCandidate(reply)
	require.NoError(t, err)
	assert.Equal(t, "fenced", candidate.Issue)
}

func TestParseCandidate_BareFence(t *testing.T) {
	reply := "```\n{\"issue\": \"bare fence\", \"confidence_score\": 0.5}\n```"

	candidate, err := parseCandidate(reply)
	require.NoError(t, err)
	assert.Equal(t, "bare fence", candidate.Issue)
}

func TestParseCandidate_StringSteps(t *testing.T) {
	// models sometimes return steps as plain strings
	reply := `{
		"issue": "loose cable",
		"confidence_score": 0.7,
		"recommended_steps": ["Reseat the cable", "Restart the device"]
	}`

	candidate, err := parseCandidate(reply)
	require.NoError(t, err)
	require.Len(t, candidate.Steps, 2)
	assert.Equal(t, 1, candidate.Steps[0].Number)
	assert.Equal(t, "Reseat the cable", candidate.Steps[0].Description)
	assert.Equal(t, 2, candidate.Steps[1].Number)
}

func TestParseCandidate_RenumbersObjectSteps(t *testing.T) {
	reply := `{
		"issue": "mixed numbering",
		"confidence_score": 0.7,
		"recommended_steps": [
			{"step_number": 7, "description": "first"},
			{"description": "second"}
		]
	}`

	candidate, err := parseCandidate(reply)
	require.NoError(t, err)
	require.Len(t, candidate.Steps, 2)
	assert.Equal(t, 1, candidate.Steps[0].Number)
	assert.Equal(t, 2, candidate.Steps[1].Number)
}

func TestParseCandidate_SkippedStepLeavesNoGap(t *testing.T) {
	// an unparseable middle entry must not break step contiguity
	reply := `{
		"issue": "gap in steps",
		"confidence_score": 0.7,
		"recommended_steps": [
			{"step_number": 1, "description": "first"},
			{"step_number": 2},
			"third"
		]
	}`

	candidate, err := parseCandidate(reply)
	require.NoError(t, err)
	require.Len(t, candidate.Steps, 2)
	assert.Equal(t, 1, candidate.Steps[0].Number)
	assert.Equal(t, "first", candidate.Steps[0].Description)
	assert.Equal(t, 2, candidate.Steps[1].Number)
	assert.Equal(t, "third", candidate.Steps[1].Description)
}

func TestParseCandidate_ClampsConfidence(t *testing.T) {
	candidate, err := parseCandidate(`{"issue": "overconfident", "confidence_score": 1.4}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, candidate.Confidence)

	candidate, err = parseCandidate(`{"issue": "negative", "confidence_score": -0.2}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, candidate.Confidence)
}

func TestParseCandidate_MissingIssue(t *testing.T) {
	_, err := parseCandidate(`{"confidence_score": 0.9}`)
	assert.Error(t, err)
}

func TestParseCandidate_NotJSON(t *testing.T) {
	_, err := parseCandidate("I could not analyze this problem.")
	assert.Error(t, err)
}
