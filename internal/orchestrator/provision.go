package orchestrator

import (
	"context"
	"fmt"

	"github.com/Lpaydat/micro-2048-verifier/internal/actions"
	"github.com/Lpaydat/micro-2048-verifier/internal/alert"
	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/fixture"
	"github.com/Lpaydat/micro-2048-verifier/internal/metrics"
	"github.com/Lpaydat/micro-2048-verifier/internal/poll"
	"github.com/Lpaydat/micro-2048-verifier/internal/ratelimit"
)

// RunProvision registers a coordinator, creates a batch of always-active
// tournaments at a bounded rate, waits for all of them to converge onto the
// main chain, and exports a fixture file for external load tooling.
func (o *Orchestrator) RunProvision(ctx context.Context) (*fixture.Fixture, error) {
	ctx, cancel := context.WithTimeout(ctx, o.run.RunTimeout)
	defer cancel()

	f, err := o.provision(ctx)
	if err != nil {
		o.alertProvisionFailed(ctx, err)
		return nil, err
	}
	return f, nil
}

func (o *Orchestrator) provision(ctx context.Context) (*fixture.Fixture, error) {
	coord, err := o.registerIdentity(ctx, o.prov.CoordinatorName, o.prov.CoordinatorPassword)
	if err != nil {
		return nil, fmt.Errorf("register coordinator: %w", err)
	}
	o.logger.Info("coordinator registered", "run_id", o.runID, "username", coord.Username, "chain", coord.ChainID)

	limiter := ratelimit.NewLimiter(o.prov.RatePerSec, o.prov.Burst)
	names := make(map[string]bool, o.prov.TournamentCount)
	for i := 0; i < o.prov.TournamentCount; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		name := fmt.Sprintf("stress_%02d_%s", i, o.runID)
		if _, err := o.actions.CreateTournament(ctx, name, model.Window{}, o.run.Shards, coord); err != nil {
			return nil, fmt.Errorf("create tournament %s: %w", name, err)
		}
		metrics.TournamentsProvisionedTotal.Inc()
		names[name] = true
	}

	if err := o.actions.RefreshActiveTournaments(ctx); err != nil {
		o.logger.Warn("active-set refresh failed", "error", err)
	}

	// Wait for the whole batch to surface on the main chain.
	res, err := poll.Until(ctx,
		poll.Options{Interval: o.run.PollInterval, MaxWait: o.run.MaxWait, Scenario: "provision"},
		func(ctx context.Context) (*actions.AggregateState, error) {
			return o.actions.QueryAggregatedState(ctx, o.mainChain(), coord.Username)
		},
		func(s *actions.AggregateState) bool {
			return len(o.ownedTournaments(s.Tournaments, coord, names)) == len(names)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("await provisioned tournaments: %w", err)
	}
	if res.DeadlineExceeded {
		// State stays nil when every fetch in the window failed.
		if res.State == nil {
			return nil, fmt.Errorf("no aggregate state observed within %s: %w", o.run.MaxWait, res.LastErr())
		}
		visible := len(o.ownedTournaments(res.State.Tournaments, coord, names))
		return nil, fmt.Errorf("only %d of %d tournaments surfaced within %s", visible, len(names), o.run.MaxWait)
	}
	owned := o.ownedTournaments(res.State.Tournaments, coord, names)

	if err := o.checkRefreshIdempotent(ctx, coord, names); err != nil {
		return nil, err
	}
	if err := o.checkAccessibility(ctx, owned, coord); err != nil {
		return nil, err
	}

	f := fixture.New(
		fixture.API{BaseURL: o.api.BaseURL, MainChain: o.api.MainChain, AppID: o.api.AppID},
		fixture.Coordinator{Username: coord.Username, Password: coord.Secret, ChainID: coord.ChainID.String()},
		owned,
	)
	if err := f.WriteFile(o.prov.FixtureFile); err != nil {
		return nil, err
	}
	o.logger.Info("fixture exported",
		"run_id", o.runID,
		"path", o.prov.FixtureFile,
		"tournaments", len(f.Tournaments),
	)
	return f, nil
}

func (o *Orchestrator) ownedTournaments(observed []model.ObservedTournament, coord model.Player, names map[string]bool) []model.ObservedTournament {
	var out []model.ObservedTournament
	for _, t := range observed {
		if t.ID != "" && t.Host == coord.Username && names[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// checkRefreshIdempotent issues a second active-set refresh and confirms the
// visible batch does not change. A shrinking or growing set here means the
// refresh recomputes activation inconsistently.
func (o *Orchestrator) checkRefreshIdempotent(ctx context.Context, coord model.Player, names map[string]bool) error {
	if err := o.actions.RefreshActiveTournaments(ctx); err != nil {
		return fmt.Errorf("second active-set refresh: %w", err)
	}
	state, err := o.actions.QueryAggregatedState(ctx, o.mainChain(), coord.Username)
	if err != nil {
		return fmt.Errorf("query after second refresh: %w", err)
	}
	if got := len(o.ownedTournaments(state.Tournaments, coord, names)); got != len(names) {
		return fmt.Errorf("active set changed on repeated refresh: %d of %d tournaments visible", got, len(names))
	}
	return nil
}

// checkAccessibility drills into each tournament's own leaderboard chain and
// confirms it answers queries; an unreachable leaderboard chain makes the
// fixture useless for load generation.
func (o *Orchestrator) checkAccessibility(ctx context.Context, owned []model.ObservedTournament, coord model.Player) error {
	for _, t := range owned {
		lbs, err := o.actions.QueryLeaderboards(ctx, t.ChainID)
		if err != nil {
			return fmt.Errorf("leaderboard chain %s unreachable for %s: %w", t.ChainID, t.Name, err)
		}
		if _, ok := model.MatchTournament(lbs, t.Name, coord.Username); !ok {
			o.logger.Warn("tournament not yet on its own chain", "name", t.Name, "chain", t.ChainID)
		}
	}
	return nil
}

func (o *Orchestrator) alertProvisionFailed(ctx context.Context, cause error) {
	a := alert.Alert{
		Type:    alert.AlertTypeProvisionFailed,
		Title:   "provisioning run failed",
		Message: fmt.Sprintf("run %s: %v", o.runID, cause),
	}
	if err := o.alerter.Send(ctx, a); err != nil {
		o.logger.Warn("alert send failed", "error", err)
	}
}
