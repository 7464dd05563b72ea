// Package verifier drives one tournament scenario end to end and classifies
// the observed outcome against the expected one.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Lpaydat/micro-2048-verifier/internal/actions"
	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/gql"
	"github.com/Lpaydat/micro-2048-verifier/internal/metrics"
	"github.com/Lpaydat/micro-2048-verifier/internal/poll"
	"github.com/Lpaydat/micro-2048-verifier/internal/tracing"
)

// Phase is where the state machine currently sits. Terminal outcomes always
// land on PhaseVerdicted; the intermediate phases exist for the evidence
// trail and for log correlation.
type Phase string

const (
	PhaseCreated             Phase = "CREATED"
	PhaseMutationSubmitted   Phase = "MUTATION_SUBMITTED"
	PhaseAwaitingConvergence Phase = "AWAITING_CONVERGENCE"
	PhaseConverged           Phase = "CONVERGED"
	PhaseTimedOut            Phase = "TIMED_OUT"
	PhaseVerdicted           Phase = "VERDICTED"
)

// Outcome is the terminal record of one scenario verification: the verdict
// plus the full evidence trail for failure diagnosis.
type Outcome struct {
	Scenario   model.Scenario
	Verdict    model.Verdict
	Tournament model.ObservedTournament
	Board      model.BoardID
	Evidence   []Step
	Elapsed    time.Duration
	Err        error
}

// Verifier runs scenarios against the service through the action executors.
// One Verifier instance is safe for concurrent scenarios: it holds no
// per-scenario state; everything accumulates on the Outcome.
type Verifier struct {
	actions *actions.Actions
	logger  *slog.Logger

	nowFn func() time.Time
}

func New(acts *actions.Actions, logger *slog.Logger) *Verifier {
	return &Verifier{
		actions: acts,
		logger:  logger.With("component", "verifier"),
		nowFn:   time.Now,
	}
}

// Verify drives one scenario: create the tournament, wait for cross-chain
// convergence, then probe it with a board creation whose acceptance or
// rejection must match the activation expectation.
func (v *Verifier) Verify(ctx context.Context, sc model.Scenario, player model.Player) Outcome {
	ctx, span := tracing.Tracer("verifier").Start(ctx, "scenario.verify")
	span.SetAttributes(
		attribute.String("scenario", sc.Name),
		attribute.Bool("expected_active", sc.ExpectedActive),
	)
	defer span.End()

	start := v.nowFn()
	ev := newEvidence(sc.Name, v.logger)
	ev.phase(PhaseCreated)

	out := v.verify(ctx, sc, player, ev)
	out.Scenario = sc
	out.Evidence = ev.steps
	out.Elapsed = v.nowFn().Sub(start)

	ev.phase(PhaseVerdicted)
	metrics.VerdictsTotal.WithLabelValues(sc.Name, out.Verdict.String()).Inc()
	if !out.Verdict.Expected() {
		span.SetStatus(codes.Error, out.Verdict.String())
	}
	v.logger.Info("scenario verdicted",
		"scenario", sc.Name,
		"verdict", out.Verdict,
		"elapsed", out.Elapsed,
	)
	return out
}

func (v *Verifier) verify(ctx context.Context, sc model.Scenario, player model.Player, ev *evidence) Outcome {
	// Tournament creation is expected to be accepted for every scenario;
	// the activation window gates board creation, not tournament creation.
	token, err := v.actions.CreateTournament(ctx, sc.Name, sc.Window, sc.Shards, player)
	if err != nil {
		if gql.IsRejection(err) {
			ev.fail("create_tournament", err)
			return Outcome{Verdict: model.VerdictUnexpectedReject, Err: err}
		}
		ev.fail("create_tournament", err)
		return Outcome{Verdict: model.VerdictTransportError, Err: err}
	}
	ev.ok("create_tournament", fmt.Sprintf("submission token %.16s (success indicator only)", token))
	ev.phase(PhaseMutationSubmitted)

	// Force the main chain to rebuild its active set so the poll below
	// observes filtering, not staleness. Best effort: the cache also
	// refreshes on its own.
	if err := v.actions.RefreshActiveTournaments(ctx); err != nil {
		ev.fail("refresh_active", err)
	} else {
		ev.ok("refresh_active", "")
	}

	ev.phase(PhaseAwaitingConvergence)
	if sc.ExpectedActiveAt(v.nowFn()) {
		return v.verifyActive(ctx, sc, player, ev)
	}
	return v.verifyInactive(ctx, sc, player, ev)
}

// verifyActive expects the tournament to become visible on the main chain
// and a board creation inside it to be accepted and counted.
func (v *Verifier) verifyActive(ctx context.Context, sc model.Scenario, player model.Player, ev *evidence) Outcome {
	res, err := v.pollForTournament(ctx, sc, player, func(t model.ObservedTournament, ok bool) bool { return ok })
	ev.attempts("await_visibility", res.Attempts)
	if err != nil {
		ev.fail("await_visibility", err)
		return Outcome{Verdict: model.VerdictTimedOut, Err: err}
	}
	if res.DeadlineExceeded {
		ev.timeout("await_visibility", res.Elapsed)
		return Outcome{Verdict: model.VerdictTimedOut}
	}
	tournament, _ := model.MatchTournament(res.State.Tournaments, sc.Name, player.Username)
	ev.ok("await_visibility", fmt.Sprintf("visible as %s on chain %s after %s", tournament.ID, tournament.ChainID, res.Elapsed.Round(time.Millisecond)))
	ev.phase(PhaseConverged)

	baseline := tournament.TotalBoards

	if err := v.actions.CreateBoard(ctx, player, tournament.ID, v.boardTimestamp(sc)); err != nil {
		if gql.IsRejection(err) {
			ev.fail("create_board", err)
			return Outcome{Verdict: model.VerdictUnexpectedReject, Tournament: tournament, Err: err}
		}
		ev.fail("create_board", err)
		return Outcome{Verdict: model.VerdictTransportError, Tournament: tournament, Err: err}
	}
	ev.ok("create_board", "submission acknowledged")

	// The ack proves nothing; the board exists once the player chain's
	// boards query shows it.
	boardRes, err := poll.Until(ctx, v.pollOpts(sc),
		func(ctx context.Context) (*actions.AggregateState, error) {
			return v.actions.QueryAggregatedState(ctx, player.ChainID, player.Username)
		},
		func(s *actions.AggregateState) bool {
			_, ok := model.FindBoard(s.Boards, player.Username, tournament.ID)
			return ok
		},
	)
	ev.attempts("await_board", boardRes.Attempts)
	if err != nil {
		ev.fail("await_board", err)
		return Outcome{Verdict: model.VerdictTimedOut, Tournament: tournament, Err: err}
	}
	if boardRes.DeadlineExceeded {
		ev.timeout("await_board", boardRes.Elapsed)
		return Outcome{Verdict: model.VerdictTimedOut, Tournament: tournament}
	}
	board, _ := model.FindBoard(boardRes.State.Boards, player.Username, tournament.ID)
	ev.ok("await_board", fmt.Sprintf("board %s confirmed", board.ID))

	if err := v.actions.SubmitMoves(ctx, player, board.ID, actions.MovePattern(8, 100_000_000, 1000)); err != nil {
		if gql.IsRejection(err) {
			ev.fail("submit_moves", err)
			return Outcome{Verdict: model.VerdictUnexpectedReject, Tournament: tournament, Board: board.ID, Err: err}
		}
		ev.fail("submit_moves", err)
		return Outcome{Verdict: model.VerdictTransportError, Tournament: tournament, Board: board.ID, Err: err}
	}
	ev.ok("submit_moves", "")

	// The board must be counted on the aggregating chain: exactly one more
	// than the pre-mutation baseline.
	countRes, err := v.pollForTournament(ctx, sc, player, func(t model.ObservedTournament, ok bool) bool {
		return ok && t.TotalBoards >= baseline+1
	})
	ev.attempts("await_board_count", countRes.Attempts)
	if err != nil {
		ev.fail("await_board_count", err)
		return Outcome{Verdict: model.VerdictTimedOut, Tournament: tournament, Board: board.ID, Err: err}
	}
	if countRes.DeadlineExceeded {
		ev.timeout("await_board_count", countRes.Elapsed)
		return Outcome{Verdict: model.VerdictTimedOut, Tournament: tournament, Board: board.ID}
	}
	final, _ := model.MatchTournament(countRes.State.Tournaments, sc.Name, player.Username)
	if final.TotalBoards != baseline+1 {
		ev.fail("await_board_count", fmt.Errorf("totalBoards moved from %d to %d, want exactly %d", baseline, final.TotalBoards, baseline+1))
		return Outcome{Verdict: model.VerdictUnexpectedAccept, Tournament: final, Board: board.ID}
	}
	ev.ok("await_board_count", fmt.Sprintf("totalBoards %d -> %d", baseline, final.TotalBoards))

	// Drill into the tournament's own leaderboard chain for authoritative
	// totals. Diagnostic only: main-chain convergence already verdicted.
	if lbs, err := v.actions.QueryLeaderboards(ctx, final.ChainID); err == nil {
		if own, ok := model.MatchTournament(lbs, sc.Name, player.Username); ok {
			ev.ok("leaderboard_chain", fmt.Sprintf("own chain reports totalBoards=%d totalPlayers=%d", own.TotalBoards, own.TotalPlayers))
		}
	}

	return Outcome{Verdict: model.VerdictAcceptedAsExpected, Tournament: final, Board: board.ID}
}

// verifyInactive expects the tournament to stay out of the active set. If it
// does surface, the representative mutation must be refused with a
// structured validation error.
func (v *Verifier) verifyInactive(ctx context.Context, sc model.Scenario, player model.Player, ev *evidence) Outcome {
	// Poll for the full window: a tournament absent early may still be
	// propagating, and surfacing late is exactly the bug being hunted.
	res, err := v.pollForTournament(ctx, sc, player, func(t model.ObservedTournament, ok bool) bool { return ok })
	ev.attempts("await_visibility", res.Attempts)
	if err != nil {
		ev.fail("await_visibility", err)
		return Outcome{Verdict: model.VerdictTimedOut, Err: err}
	}

	if res.DeadlineExceeded {
		// Never surfaced: the activation filter held for the whole window.
		ev.phase(PhaseTimedOut)
		ev.ok("await_visibility", fmt.Sprintf("hidden for the full %s window", sc.MaxWait))
		return Outcome{Verdict: model.VerdictRejectedAsExpected}
	}

	// Visible despite an inactive window. The service may legitimately list
	// it while refusing writes, so the board probe decides.
	tournament, _ := model.MatchTournament(res.State.Tournaments, sc.Name, player.Username)
	ev.ok("await_visibility", fmt.Sprintf("listed as %s despite inactive window", tournament.ID))
	ev.phase(PhaseConverged)

	err = v.actions.CreateBoard(ctx, player, tournament.ID, v.boardTimestamp(sc))
	switch {
	case err == nil:
		ev.fail("create_board", fmt.Errorf("board creation accepted in inactive tournament"))
		return Outcome{Verdict: model.VerdictUnexpectedAccept, Tournament: tournament}
	case gql.IsRejection(err):
		ev.ok("create_board", "correctly rejected: "+err.Error())
		return Outcome{Verdict: model.VerdictRejectedAsExpected, Tournament: tournament}
	default:
		// Unreachable backend or a raw 500 is an infrastructure fault, not
		// a validation verdict.
		ev.fail("create_board", err)
		return Outcome{Verdict: model.VerdictTransportError, Tournament: tournament, Err: err}
	}
}

func (v *Verifier) pollOpts(sc model.Scenario) poll.Options {
	return poll.Options{Interval: sc.PollInterval, MaxWait: sc.MaxWait, Scenario: sc.Name}
}

// pollForTournament polls the main chain aggregate until pred holds for the
// scenario's (name, host) match.
func (v *Verifier) pollForTournament(ctx context.Context, sc model.Scenario, player model.Player, pred func(model.ObservedTournament, bool) bool) (poll.Result[*actions.AggregateState], error) {
	return poll.Until(ctx, v.pollOpts(sc),
		func(ctx context.Context) (*actions.AggregateState, error) {
			return v.actions.QueryAggregatedState(ctx, v.mainChain(), player.Username)
		},
		func(s *actions.AggregateState) bool {
			t, ok := model.MatchTournament(s.Tournaments, sc.Name, player.Username)
			return pred(t, ok)
		},
	)
}

func (v *Verifier) mainChain() model.ChainID {
	return v.actions.MainEndpoint().Chain
}

// boardTimestamp picks a board creation timestamp inside the scenario's
// window: "now" for bounded windows, a fixed small tick for unbounded ones.
func (v *Verifier) boardTimestamp(sc model.Scenario) int64 {
	if sc.Window.Unbounded() {
		return 10_000_000
	}
	return v.nowFn().UnixMicro()
}
