package model

import "time"

// Window is a tournament activation window in microsecond epoch ticks.
// A zero bound means "unbounded" on that side.
type Window struct {
	Start int64
	End   int64
}

// ActiveAt reports whether the window is open at the given wall-clock time.
func (w Window) ActiveAt(now time.Time) bool {
	ts := now.UnixMicro()
	if w.Start != 0 && ts < w.Start {
		return false
	}
	if w.End != 0 && ts > w.End {
		return false
	}
	return true
}

// Unbounded reports whether the window has no bounds at all.
func (w Window) Unbounded() bool {
	return w.Start == 0 && w.End == 0
}

// Scenario describes one tournament verification case. Scenarios are
// immutable once submitted; the verifier only reads them.
type Scenario struct {
	Name           string
	Window         Window
	ExpectedActive bool
	Shards         int

	// Poll tuning. Shard-to-leaderboard propagation distance grows with
	// shard count, so both knobs are per-scenario.
	PollInterval time.Duration
	MaxWait      time.Duration
}

// ExpectedActiveAt recomputes the activation expectation from the window at
// verification time. ExpectedActive is what the matrix author declared;
// for bounded windows the two can drift apart by the polling interval, and
// the wall clock wins.
func (s Scenario) ExpectedActiveAt(now time.Time) bool {
	if s.Window.Unbounded() {
		return s.ExpectedActive
	}
	return s.Window.ActiveAt(now)
}
