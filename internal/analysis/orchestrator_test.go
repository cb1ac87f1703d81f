package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfix-ai/braincore/internal/memory"
	"github.com/smartfix-ai/braincore/internal/query"
)

type stubReasoner struct {
	candidate *Candidate
	err       error
	delay     time.Duration
	hints     query.Hints
}

func (s *stubReasoner) Name() string { return "stub" }

func (s *stubReasoner) Analyze(ctx context.Context, _ string, hints query.Hints) (*Candidate, error) {
	s.hints = hints
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.candidate, s.err
}

type stubSearcher struct {
	sources []WebSource
	err     error
	delay   time.Duration
}

func (s *stubSearcher) Search(ctx context.Context, _ string, _ int) ([]WebSource, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.sources, s.err
}

func goodCandidate() *Candidate {
	return &Candidate{
		Issue:      "TV backlight failure",
		Causes:     []string{"Failed LED strip", "Loose LVDS cable"},
		Confidence: 0.8,
		Steps: []memory.SolutionStep{
			{Number: 1, Description: "Shine a flashlight at the screen"},
		},
	}
}

func goodSources() []WebSource {
	return []WebSource{
		{Title: "Fix a black TV screen", Snippet: "Check the backlight", URL: "https://example.com/fix"},
	}
}

func TestOrchestrator_BothChannelsSucceed(t *testing.T) {
	o, err := NewOrchestrator(
		&stubReasoner{candidate: goodCandidate()},
		&stubSearcher{sources: goodSources()},
		Config{}, nil,
	)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	require.NoError(t, err)
	require.NotNil(t, result.Reasoned)
	assert.Equal(t, "TV backlight failure", result.Reasoned.Issue)
	require.Len(t, result.Web, 1)
	assert.Equal(t, "https://example.com/fix", result.Web[0].URL)
}

func TestOrchestrator_ReasonerFailureIsPartial(t *testing.T) {
	o, err := NewOrchestrator(
		&stubReasoner{err: errors.New("rate limited")},
		&stubSearcher{sources: goodSources()},
		Config{}, nil,
	)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	require.NoError(t, err)
	assert.Nil(t, result.Reasoned)
	assert.Len(t, result.Web, 1)
}

func TestOrchestrator_SearchFailureIsPartial(t *testing.T) {
	o, err := NewOrchestrator(
		&stubReasoner{candidate: goodCandidate()},
		&stubSearcher{err: errors.New("quota exceeded")},
		Config{}, nil,
	)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	require.NoError(t, err)
	require.NotNil(t, result.Reasoned)
	assert.Empty(t, result.Web)
}

func TestOrchestrator_BothChannelsFail(t *testing.T) {
	o, err := NewOrchestrator(
		&stubReasoner{err: errors.New("rate limited")},
		&stubSearcher{err: errors.New("quota exceeded")},
		Config{}, nil,
	)
	require.NoError(t, err)

	_, err = o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestOrchestrator_ReasonerOnly(t *testing.T) {
	o, err := NewOrchestrator(&stubReasoner{candidate: goodCandidate()}, nil, Config{}, nil)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	require.NoError(t, err)
	require.NotNil(t, result.Reasoned)
	assert.Empty(t, result.Web)
}

func TestOrchestrator_SearcherOnly(t *testing.T) {
	o, err := NewOrchestrator(nil, &stubSearcher{sources: goodSources()}, Config{}, nil)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	require.NoError(t, err)
	assert.Nil(t, result.Reasoned)
	assert.Len(t, result.Web, 1)
}

func TestOrchestrator_NeitherConfigured(t *testing.T) {
	_, err := NewOrchestrator(nil, nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestOrchestrator_SlowReasonerTimesOut(t *testing.T) {
	o, err := NewOrchestrator(
		&stubReasoner{candidate: goodCandidate(), delay: time.Second},
		&stubSearcher{sources: goodSources()},
		Config{ReasonerTimeout: 20 * time.Millisecond},
		nil,
	)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	require.NoError(t, err)
	assert.Nil(t, result.Reasoned)
	assert.Len(t, result.Web, 1)
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	o, err := NewOrchestrator(
		&stubReasoner{candidate: goodCandidate(), delay: time.Second},
		&stubSearcher{sources: goodSources(), delay: time.Second},
		Config{}, nil,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Analyze(ctx, "tv screen is black", query.Hints{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrchestrator_EmptySearchResultsAlone(t *testing.T) {
	o, err := NewOrchestrator(nil, &stubSearcher{}, Config{}, nil)
	require.NoError(t, err)

	_, err = o.Analyze(context.Background(), "tv screen is black", query.Hints{})
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestOrchestrator_ForwardsHintsToReasoner(t *testing.T) {
	reasoner := &stubReasoner{candidate: goodCandidate()}
	o, err := NewOrchestrator(reasoner, nil, Config{}, nil)
	require.NoError(t, err)

	hints := query.Hints{DeviceCategory: "television", ErrorCodes: []string{"E102"}}
	_, err = o.Analyze(context.Background(), "tv screen is black", hints)
	require.NoError(t, err)
	assert.Equal(t, hints, reasoner.hints)
}
