// Package poll provides the generic "poll until the predicate holds or the
// deadline expires" primitive underneath all eventual-consistency checks.
package poll

import (
	"context"
	"time"

	"github.com/Lpaydat/micro-2048-verifier/internal/metrics"
)

// Options tunes one poll loop. The interval is fixed rather than backed off:
// call volume in a correctness harness is bounded, and a predictable sampling
// cadence matters more than server load. It must stay tunable per scenario
// because shard-to-leaderboard propagation distance varies with shard count.
type Options struct {
	Interval time.Duration
	MaxWait  time.Duration

	// Scenario labels the loop in metrics and the attempt trail.
	Scenario string
}

// Attempt records one fetch+evaluate cycle for diagnostics.
type Attempt[S any] struct {
	At    time.Time
	State S
	Err   error
}

// Result carries the outcome of a poll loop. When DeadlineExceeded is true,
// State holds the last successfully fetched state so callers can report what
// the system looked like when time ran out.
type Result[S any] struct {
	State            S
	Converged        bool
	DeadlineExceeded bool
	Elapsed          time.Duration
	Attempts         []Attempt[S]
}

// LastErr returns the error of the most recent failed attempt, if any.
func (r Result[S]) LastErr() error {
	for i := len(r.Attempts) - 1; i >= 0; i-- {
		if r.Attempts[i].Err != nil {
			return r.Attempts[i].Err
		}
	}
	return nil
}

// Until fetches state and evaluates pred until it holds, the deadline
// expires, or ctx is cancelled. First success wins; the loop never keeps
// polling past a satisfied predicate. Fetch errors do not abort the loop
// (the next cycle may succeed); they are recorded in the attempt trail.
// Only ctx cancellation returns a non-nil error.
func Until[S any](ctx context.Context, opts Options, fetch func(context.Context) (S, error), pred func(S) bool) (Result[S], error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 30 * time.Second
	}

	start := time.Now()
	deadline := start.Add(opts.MaxWait)

	var res Result[S]
	for {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}

		metrics.PollCyclesTotal.WithLabelValues(opts.Scenario).Inc()
		state, err := fetch(ctx)
		res.Attempts = append(res.Attempts, Attempt[S]{At: time.Now(), State: state, Err: err})

		if err == nil {
			res.State = state
			if pred(state) {
				res.Converged = true
				res.Elapsed = time.Since(start)
				metrics.ConvergenceSeconds.WithLabelValues(opts.Scenario).Observe(res.Elapsed.Seconds())
				return res, nil
			}
		} else if ctx.Err() != nil {
			res.Elapsed = time.Since(start)
			return res, ctx.Err()
		}

		if !time.Now().Before(deadline) {
			res.DeadlineExceeded = true
			res.Elapsed = time.Since(start)
			metrics.PollDeadlinesTotal.WithLabelValues(opts.Scenario).Inc()
			return res, nil
		}

		select {
		case <-ctx.Done():
			res.Elapsed = time.Since(start)
			return res, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}
}
