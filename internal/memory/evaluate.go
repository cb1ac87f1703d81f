package memory

// Thresholds configure the match evaluator.
type Thresholds struct {
	// HighConfidence is the similarity above which a match may be
	// returned directly, skipping fresh analysis.
	HighConfidence float64

	// WorthConsidering is the similarity above which a match still
	// enters fusion as an uncertain candidate.
	WorthConsidering float64

	// MinSuccessRate is the success rate floor for direct answers.
	// Records that keep failing for users are never surfaced directly,
	// however similar they look.
	MinSuccessRate float64
}

// Verdict is the match evaluator's decision kind.
type Verdict string

const (
	// VerdictDirect means the best match is trustworthy enough to return
	// without fresh analysis.
	VerdictDirect Verdict = "direct"

	// VerdictUncertain means fresh analysis is required; Best, if set,
	// should be carried into fusion.
	VerdictUncertain Verdict = "uncertain"
)

// Decision is the match evaluator's output.
type Decision struct {
	Verdict Verdict

	// Best is the best candidate match. Nil when no match clears the
	// worth-considering threshold.
	Best *Match
}

// Evaluate decides whether any of the top-k matches is an acceptable
// direct answer. Matches must already be in descending lookup order.
// Pure decision function: no I/O.
func Evaluate(matches []Match, t Thresholds) Decision {
	if len(matches) == 0 {
		EvaluationsTotal.WithLabelValues("none").Inc()
		return Decision{Verdict: VerdictUncertain}
	}

	top := matches[0]
	if top.Similarity > t.HighConfidence && top.Record.SuccessRate >= t.MinSuccessRate {
		EvaluationsTotal.WithLabelValues(string(VerdictDirect)).Inc()
		return Decision{Verdict: VerdictDirect, Best: &top}
	}

	if top.Similarity >= t.WorthConsidering {
		EvaluationsTotal.WithLabelValues(string(VerdictUncertain)).Inc()
		return Decision{Verdict: VerdictUncertain, Best: &top}
	}

	EvaluationsTotal.WithLabelValues("none").Inc()
	return Decision{Verdict: VerdictUncertain}
}
