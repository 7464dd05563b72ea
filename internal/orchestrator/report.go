package orchestrator

import (
	"time"

	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/verifier"
)

// Report aggregates the outcomes of one validation run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Outcomes  []verifier.Outcome
}

// Passed reports whether every scenario landed on an expected verdict.
func (r *Report) Passed() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	for _, o := range r.Outcomes {
		if !o.Verdict.Expected() {
			return false
		}
	}
	return true
}

// Summary counts outcomes per verdict.
func (r *Report) Summary() map[model.Verdict]int {
	counts := make(map[model.Verdict]int, len(r.Outcomes))
	for _, o := range r.Outcomes {
		counts[o.Verdict]++
	}
	return counts
}

// Unexpected returns the outcomes that deviated from their scenario's
// expectation, in run order.
func (r *Report) Unexpected() []verifier.Outcome {
	var out []verifier.Outcome
	for _, o := range r.Outcomes {
		if !o.Verdict.Expected() {
			out = append(out, o)
		}
	}
	return out
}
