package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lpaydat/micro-2048-verifier/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

func TestApplyFlags(t *testing.T) {
	cfg := &config.Config{
		Run:       config.RunConfig{MatrixFile: "env.yaml"},
		Provision: config.ProvisionConfig{FixtureFile: "env.json", TournamentCount: 5},
	}

	applyFlags(cfg, flags{})
	assert.Equal(t, "env.yaml", cfg.Run.MatrixFile)
	assert.Equal(t, "env.json", cfg.Provision.FixtureFile)
	assert.Equal(t, 5, cfg.Provision.TournamentCount)

	applyFlags(cfg, flags{matrixFile: "cli.yaml", fixtureFile: "cli.json", tournaments: 12})
	assert.Equal(t, "cli.yaml", cfg.Run.MatrixFile)
	assert.Equal(t, "cli.json", cfg.Provision.FixtureFile)
	assert.Equal(t, 12, cfg.Provision.TournamentCount)
}
