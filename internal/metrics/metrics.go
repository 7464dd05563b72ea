package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Harness counters and histograms, partitioned by chain and scenario.

var (
	// Transport
	TransportRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifier",
		Subsystem: "transport",
		Name:      "requests_total",
		Help:      "Total GraphQL requests by outcome (ok, rejected, http_error, network_error, malformed)",
	}, []string{"chain", "outcome"})

	TransportLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "verifier",
		Subsystem: "transport",
		Name:      "request_duration_seconds",
		Help:      "GraphQL request round-trip duration",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"chain"})

	// Poller
	PollCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifier",
		Subsystem: "poll",
		Name:      "cycles_total",
		Help:      "Total poll cycles executed",
	}, []string{"scenario"})

	PollDeadlinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifier",
		Subsystem: "poll",
		Name:      "deadlines_total",
		Help:      "Total poll loops that exhausted their deadline without converging",
	}, []string{"scenario"})

	ConvergenceSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "verifier",
		Subsystem: "poll",
		Name:      "convergence_seconds",
		Help:      "Time from mutation submission to observed convergence",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"scenario"})

	// Verdicts
	VerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "verifier",
		Subsystem: "scenario",
		Name:      "verdicts_total",
		Help:      "Scenario verdicts by outcome",
	}, []string{"scenario", "verdict"})

	// Provisioning
	TournamentsProvisionedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verifier",
		Subsystem: "provision",
		Name:      "tournaments_total",
		Help:      "Tournaments created in bulk-provisioning mode",
	})

	RateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "verifier",
		Subsystem: "provision",
		Name:      "rate_limit_waits_total",
		Help:      "Mutations delayed by the provisioning rate limiter",
	})
)
