// Package orchestrator owns the run modes: a validation run over the
// scenario matrix and a bulk-provisioning run for downstream load tooling.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lpaydat/micro-2048-verifier/internal/actions"
	"github.com/Lpaydat/micro-2048-verifier/internal/alert"
	"github.com/Lpaydat/micro-2048-verifier/internal/config"
	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/poll"
	"github.com/Lpaydat/micro-2048-verifier/internal/verifier"
)

// Orchestrator wires the action executors, the scenario verifier and the
// alert channel into complete runs. Each Orchestrator carries one run id;
// every identity and tournament name created during the run embeds it.
type Orchestrator struct {
	actions *actions.Actions
	verif   *verifier.Verifier
	alerter alert.Alerter
	logger  *slog.Logger

	api   config.APIConfig
	run   config.RunConfig
	prov  config.ProvisionConfig
	runID string
	nowFn func() time.Time
}

func New(acts *actions.Actions, verif *verifier.Verifier, alerter alert.Alerter, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		actions: acts,
		verif:   verif,
		alerter: alerter,
		logger:  logger.With("component", "orchestrator"),
		api:     cfg.API,
		run:     cfg.Run,
		prov:    cfg.Provision,
		runID:   newRunID(),
		nowFn:   time.Now,
	}
}

// RunID identifies this run in names, logs and the report.
func (o *Orchestrator) RunID() string { return o.runID }

func newRunID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// RunValidation executes the scenario matrix under one run deadline and
// aggregates the verdicts. The returned error covers setup failures only;
// scenario failures are verdicts inside the report.
func (o *Orchestrator) RunValidation(ctx context.Context) (*Report, error) {
	start := o.nowFn()
	ctx, cancel := context.WithTimeout(ctx, o.run.RunTimeout)
	defer cancel()

	player, err := o.registerIdentity(ctx, "verifier", "")
	if err != nil {
		o.alertRunFailed(ctx, fmt.Sprintf("player registration failed: %v", err))
		return nil, fmt.Errorf("register run player: %w", err)
	}
	o.logger.Info("run player registered", "run_id", o.runID, "username", player.Username, "chain", player.ChainID)

	scenarios, err := o.matrix(start)
	if err != nil {
		return nil, err
	}

	outcomes := make([]verifier.Outcome, len(scenarios))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.run.Parallelism)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			outcomes[i] = o.verif.Verify(gCtx, sc, player)
			return nil
		})
	}
	// Verdicts carry all failures; the group never returns an error.
	_ = g.Wait()

	report := &Report{
		RunID:     o.runID,
		StartedAt: start,
		Elapsed:   o.nowFn().Sub(start),
		Outcomes:  outcomes,
	}
	o.logger.Info("validation run finished",
		"run_id", o.runID,
		"passed", report.Passed(),
		"elapsed", report.Elapsed,
	)
	if !report.Passed() {
		o.alertUnexpected(ctx, report)
	}
	return report, nil
}

func (o *Orchestrator) matrix(now time.Time) ([]model.Scenario, error) {
	defaults := MatrixDefaults{
		Shards:       o.run.Shards,
		PollInterval: o.run.PollInterval,
		MaxWait:      o.run.MaxWait,
	}
	if o.run.MatrixFile != "" {
		return LoadMatrix(o.run.MatrixFile, now, o.runID, defaults)
	}
	return DefaultMatrix(now, o.runID, defaults), nil
}

// registerIdentity registers a fresh player whose name embeds the run id,
// then waits for its chain assignment to surface on the main chain. An empty
// secret gets a random one.
func (o *Orchestrator) registerIdentity(ctx context.Context, base, secret string) (model.Player, error) {
	if secret == "" {
		secret = uuid.NewString()
	}
	player := model.Player{
		Username: fmt.Sprintf("%s_%s", base, o.runID),
		Secret:   secret,
	}
	if _, err := o.actions.RegisterPlayer(ctx, player); err != nil {
		return player, err
	}

	// The chain assignment only exists once registration propagates to the
	// main chain's aggregate.
	res, err := poll.Until(ctx,
		poll.Options{Interval: o.run.PollInterval, MaxWait: o.run.MaxWait, Scenario: "register_" + base},
		func(ctx context.Context) (*actions.AggregateState, error) {
			return o.actions.QueryAggregatedState(ctx, o.mainChain(), player.Username)
		},
		func(s *actions.AggregateState) bool { return s.PlayerChain != "" },
	)
	if err != nil {
		return player, err
	}
	if res.DeadlineExceeded {
		return player, fmt.Errorf("player %s never surfaced on chain %s within %s", player.Username, o.mainChain(), o.run.MaxWait)
	}
	player.ChainID = res.State.PlayerChain
	return player, nil
}

func (o *Orchestrator) mainChain() model.ChainID {
	return model.ChainID(o.api.MainChain)
}

func (o *Orchestrator) alertUnexpected(ctx context.Context, report *Report) {
	fields := make(map[string]string)
	for _, out := range report.Unexpected() {
		fields[out.Scenario.Name] = out.Verdict.String()
	}
	a := alert.Alert{
		Type:    alert.AlertTypeUnexpectedVerdict,
		Title:   "validation run failed",
		Message: fmt.Sprintf("run %s: %d of %d scenarios deviated from expectation", o.runID, len(fields), len(report.Outcomes)),
		Fields:  fields,
	}
	if err := o.alerter.Send(ctx, a); err != nil {
		o.logger.Warn("alert send failed", "error", err)
	}
}

func (o *Orchestrator) alertRunFailed(ctx context.Context, msg string) {
	a := alert.Alert{
		Type:    alert.AlertTypeRunFailed,
		Title:   "run aborted",
		Message: fmt.Sprintf("run %s: %s", o.runID, msg),
	}
	if err := o.alerter.Send(ctx, a); err != nil {
		o.logger.Warn("alert send failed", "error", err)
	}
}
