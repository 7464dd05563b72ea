package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"TransportRequestsTotal", TransportRequestsTotal},
		{"TransportLatencySeconds", TransportLatencySeconds},
		{"PollCyclesTotal", PollCyclesTotal},
		{"PollDeadlinesTotal", PollDeadlinesTotal},
		{"ConvergenceSeconds", ConvergenceSeconds},
		{"VerdictsTotal", VerdictsTotal},
		{"TournamentsProvisionedTotal", TournamentsProvisionedTotal},
		{"RateLimitWaits", RateLimitWaits},
	}

	for _, v := range vars {
		assert.NotNil(t, v.val, "metric %s should be registered", v.name)
	}
}

func TestMetrics_LabeledCountersAccept(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		TransportRequestsTotal.WithLabelValues("main-chain", "ok").Inc()
		TransportLatencySeconds.WithLabelValues("main-chain").Observe(0.05)
		PollCyclesTotal.WithLabelValues("active_tournament").Inc()
		PollDeadlinesTotal.WithLabelValues("past_tournament").Inc()
		ConvergenceSeconds.WithLabelValues("active_tournament").Observe(1.5)
		VerdictsTotal.WithLabelValues("active_tournament", "ACCEPTED_AS_EXPECTED").Inc()
	})
}
