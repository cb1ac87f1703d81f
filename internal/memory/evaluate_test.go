package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalMatch(similarity, successRate float64) Match {
	r := testRecord("evaluator input")
	r.ID = "prob_eval"
	r.SuccessRate = successRate
	return Match{Record: r, Similarity: similarity}
}

func defaultThresholds() Thresholds {
	return Thresholds{
		HighConfidence:   0.80,
		WorthConsidering: 0.60,
		MinSuccessRate:   0.30,
	}
}

func TestEvaluate_DirectAnswer(t *testing.T) {
	decision := Evaluate([]Match{evalMatch(0.92, 0.85)}, defaultThresholds())

	assert.Equal(t, VerdictDirect, decision.Verdict)
	require.NotNil(t, decision.Best)
	assert.Equal(t, "prob_eval", decision.Best.Record.ID)
}

func TestEvaluate_SimilarityAtThresholdIsNotDirect(t *testing.T) {
	// the high-confidence bar is strict: exactly 0.80 stays uncertain
	decision := Evaluate([]Match{evalMatch(0.80, 0.85)}, defaultThresholds())

	assert.Equal(t, VerdictUncertain, decision.Verdict)
	require.NotNil(t, decision.Best)
}

func TestEvaluate_LowSuccessRateBlocksDirect(t *testing.T) {
	// similar enough, but users keep reporting it failed
	decision := Evaluate([]Match{evalMatch(0.95, 0.10)}, defaultThresholds())

	assert.Equal(t, VerdictUncertain, decision.Verdict)
	require.NotNil(t, decision.Best)
	assert.Equal(t, 0.95, decision.Best.Similarity)
}

func TestEvaluate_SuccessRateFloorIsInclusive(t *testing.T) {
	decision := Evaluate([]Match{evalMatch(0.95, 0.30)}, defaultThresholds())

	assert.Equal(t, VerdictDirect, decision.Verdict)
}

func TestEvaluate_WorthConsideringCarriesBest(t *testing.T) {
	decision := Evaluate([]Match{evalMatch(0.65, 0.9)}, defaultThresholds())

	assert.Equal(t, VerdictUncertain, decision.Verdict)
	require.NotNil(t, decision.Best)
	assert.Equal(t, 0.65, decision.Best.Similarity)
}

func TestEvaluate_BelowWorthConsideringDropsBest(t *testing.T) {
	decision := Evaluate([]Match{evalMatch(0.40, 0.9)}, defaultThresholds())

	assert.Equal(t, VerdictUncertain, decision.Verdict)
	assert.Nil(t, decision.Best)
}

func TestEvaluate_NoMatches(t *testing.T) {
	decision := Evaluate(nil, defaultThresholds())

	assert.Equal(t, VerdictUncertain, decision.Verdict)
	assert.Nil(t, decision.Best)
}

func TestEvaluate_OnlyTopMatchDecides(t *testing.T) {
	matches := []Match{
		evalMatch(0.70, 0.9),
		evalMatch(0.95, 0.9),
	}
	decision := Evaluate(matches, defaultThresholds())

	// matches arrive presorted; a stronger record further down is ignored
	assert.Equal(t, VerdictUncertain, decision.Verdict)
	require.NotNil(t, decision.Best)
	assert.Equal(t, 0.70, decision.Best.Similarity)
}
