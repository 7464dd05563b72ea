package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Lpaydat/micro-2048-verifier/internal/actions"
	"github.com/Lpaydat/micro-2048-verifier/internal/alert"
	"github.com/Lpaydat/micro-2048-verifier/internal/config"
	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/gql"
	"github.com/Lpaydat/micro-2048-verifier/internal/orchestrator"
	"github.com/Lpaydat/micro-2048-verifier/internal/tracing"
	"github.com/Lpaydat/micro-2048-verifier/internal/verifier"
)

const (
	modeValidate  = "validate"
	modeProvision = "provision"
)

type flags struct {
	mode        string
	matrixFile  string
	fixtureFile string
	tournaments int
}

func main() {
	os.Exit(run())
}

func run() int {
	var f flags
	flag.StringVar(&f.mode, "mode", modeValidate, "run mode: validate or provision")
	flag.StringVar(&f.matrixFile, "matrix", "", "YAML scenario matrix overriding the built-in one")
	flag.StringVar(&f.fixtureFile, "fixture", "", "fixture output path for provision mode")
	flag.IntVar(&f.tournaments, "tournaments", 0, "tournament count for provision mode")
	flag.Parse()

	if f.mode != modeValidate && f.mode != modeProvision {
		fmt.Fprintf(os.Stderr, "unknown mode %q (want %s or %s)\n", f.mode, modeValidate, modeProvision)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	applyFlags(cfg, f)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	logger.Info("starting tournament verifier",
		"mode", f.mode,
		"base_url", cfg.API.BaseURL,
		"main_chain", cfg.API.MainChain,
		"app", cfg.API.AppID,
		"parallelism", cfg.Run.Parallelism,
		"run_timeout", cfg.Run.RunTimeout,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, "micro-2048-verifier", cfg.Tracing.OTLPEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Warn("tracing init failed, continuing without", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown error", "error", err)
			}
		}()
	}

	client := gql.NewClient(cfg.API.ClientTimeout, logger)
	acts := actions.New(client, cfg.API.BaseURL, model.ChainID(cfg.API.MainChain), model.AppID(cfg.API.AppID), logger)
	verif := verifier.New(acts, logger)
	alerter := alert.FromConfig(cfg.Alert.WebhookURL, cfg.Alert.Timeout)
	orch := orchestrator.New(acts, verif, alerter, cfg, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runMetricsServer(gCtx, cfg.Server.MetricsPort, logger)
	})

	exitCode := 0
	g.Go(func() error {
		defer cancel()
		switch f.mode {
		case modeProvision:
			if _, err := orch.RunProvision(gCtx); err != nil {
				logger.Error("provisioning run failed", "run_id", orch.RunID(), "error", err)
				exitCode = 1
			}
		default:
			report, err := orch.RunValidation(gCtx)
			if err != nil {
				logger.Error("validation run failed", "run_id", orch.RunID(), "error", err)
				exitCode = 1
				return nil
			}
			logReport(logger, report)
			if !report.Passed() {
				exitCode = 1
			}
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("verifier exited with error", "error", err)
		return 1
	}
	return exitCode
}

// applyFlags lets run-shape flags override environment configuration.
func applyFlags(cfg *config.Config, f flags) {
	if f.matrixFile != "" {
		cfg.Run.MatrixFile = f.matrixFile
	}
	if f.fixtureFile != "" {
		cfg.Provision.FixtureFile = f.fixtureFile
	}
	if f.tournaments > 0 {
		cfg.Provision.TournamentCount = f.tournaments
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logReport(logger *slog.Logger, report *orchestrator.Report) {
	for verdict, count := range report.Summary() {
		logger.Info("verdict count", "run_id", report.RunID, "verdict", verdict, "count", count)
	}
	for _, out := range report.Unexpected() {
		attrs := []any{
			"run_id", report.RunID,
			"scenario", out.Scenario.Name,
			"verdict", out.Verdict,
			"elapsed", out.Elapsed,
		}
		if out.Err != nil {
			attrs = append(attrs, "error", out.Err)
		}
		logger.Error("scenario deviated from expectation", attrs...)
	}
	logger.Info("validation report",
		"run_id", report.RunID,
		"passed", report.Passed(),
		"scenarios", len(report.Outcomes),
		"elapsed", report.Elapsed,
	)
}

func runMetricsServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}()

	logger.Info("metrics server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
