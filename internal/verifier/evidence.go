package verifier

import (
	"log/slog"
	"time"

	"github.com/Lpaydat/micro-2048-verifier/internal/actions"
	"github.com/Lpaydat/micro-2048-verifier/internal/poll"
)

// Step is one entry in a scenario's evidence trail. State carries the
// aggregate snapshot fetched by a poll attempt, nil for non-poll steps and
// for attempts whose fetch failed.
type Step struct {
	At     time.Time
	Name   string
	Detail string
	State  *actions.AggregateState
	Err    error
}

// evidence accumulates the trail for one scenario and mirrors it to the
// logger as it grows, so a hung run still shows where it got to.
type evidence struct {
	scenario string
	logger   *slog.Logger
	steps    []Step
}

func newEvidence(scenario string, logger *slog.Logger) *evidence {
	return &evidence{scenario: scenario, logger: logger.With("scenario", scenario)}
}

func (e *evidence) phase(p Phase) {
	e.steps = append(e.steps, Step{At: time.Now(), Name: "phase", Detail: string(p)})
	e.logger.Debug("phase transition", "phase", p)
}

func (e *evidence) ok(name, detail string) {
	e.steps = append(e.steps, Step{At: time.Now(), Name: name, Detail: detail})
	e.logger.Debug("step ok", "step", name, "detail", detail)
}

func (e *evidence) fail(name string, err error) {
	e.steps = append(e.steps, Step{At: time.Now(), Name: name, Err: err})
	e.logger.Warn("step failed", "step", name, "error", err)
}

// attempts folds a poll's attempt trail into the evidence: one step per
// fetch, carrying the state it observed or the error it hit. This is what
// makes a timed-out verdict diagnosable after the fact.
func (e *evidence) attempts(name string, atts []poll.Attempt[*actions.AggregateState]) {
	for _, a := range atts {
		e.steps = append(e.steps, Step{At: a.At, Name: name + ".attempt", State: a.State, Err: a.Err})
	}
	e.logger.Debug("poll attempts recorded", "step", name, "attempts", len(atts))
}

func (e *evidence) timeout(name string, elapsed time.Duration) {
	e.steps = append(e.steps, Step{At: time.Now(), Name: name, Detail: "deadline exceeded after " + elapsed.Round(time.Millisecond).String()})
	e.logger.Warn("step timed out", "step", name, "elapsed", elapsed)
}
