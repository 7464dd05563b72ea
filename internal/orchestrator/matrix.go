package orchestrator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
)

// MatrixDefaults are the run-shape knobs every scenario inherits unless its
// matrix entry overrides them.
type MatrixDefaults struct {
	Shards       int
	PollInterval time.Duration
	MaxWait      time.Duration
}

// DefaultMatrix is the built-in validation matrix: one scenario per
// activation-window class. Names carry the run id so repeated runs against
// the same node never collide on the (name, host) pair.
func DefaultMatrix(now time.Time, runID string, d MatrixDefaults) []model.Scenario {
	hour := time.Hour.Microseconds()
	ts := now.UnixMicro()

	mk := func(name string, w model.Window, active bool) model.Scenario {
		return model.Scenario{
			Name:           fmt.Sprintf("%s_%s", name, runID),
			Window:         w,
			ExpectedActive: active,
			Shards:         d.Shards,
			PollInterval:   d.PollInterval,
			MaxWait:        d.MaxWait,
		}
	}

	return []model.Scenario{
		mk("past_tournament", model.Window{Start: ts - 2*hour, End: ts - hour}, false),
		mk("future_tournament", model.Window{Start: ts + hour, End: ts + 2*hour}, false),
		mk("windowed_tournament", model.Window{Start: ts - hour, End: ts + hour}, true),
		mk("active_tournament", model.Window{}, true),
	}
}

// matrixFile is the YAML layout of a scenario-matrix override. Window bounds
// are offsets from run start; an absent offset leaves that bound open.
type matrixFile struct {
	Scenarios []matrixEntry `yaml:"scenarios"`
}

type matrixEntry struct {
	Name           string `yaml:"name"`
	StartOffset    string `yaml:"startOffset"`
	EndOffset      string `yaml:"endOffset"`
	ExpectedActive bool   `yaml:"expectedActive"`
	Shards         int    `yaml:"shards"`
	PollInterval   string `yaml:"pollInterval"`
	MaxWait        string `yaml:"maxWait"`
}

// LoadMatrix reads a scenario matrix from a YAML file, resolving window
// offsets against now.
func LoadMatrix(path string, now time.Time, runID string, d MatrixDefaults) ([]model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix file: %w", err)
	}

	var file matrixFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode matrix file: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("matrix file %s declares no scenarios", path)
	}

	scenarios := make([]model.Scenario, 0, len(file.Scenarios))
	seen := make(map[string]bool, len(file.Scenarios))
	for i, e := range file.Scenarios {
		if e.Name == "" {
			return nil, fmt.Errorf("matrix entry %d has no name", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("matrix entry %q appears twice", e.Name)
		}
		seen[e.Name] = true

		sc := model.Scenario{
			Name:           fmt.Sprintf("%s_%s", e.Name, runID),
			ExpectedActive: e.ExpectedActive,
			Shards:         d.Shards,
			PollInterval:   d.PollInterval,
			MaxWait:        d.MaxWait,
		}
		if e.Shards > 0 {
			sc.Shards = e.Shards
		}
		if sc.Window.Start, err = offsetMicros(e.StartOffset, now); err != nil {
			return nil, fmt.Errorf("matrix entry %q startOffset: %w", e.Name, err)
		}
		if sc.Window.End, err = offsetMicros(e.EndOffset, now); err != nil {
			return nil, fmt.Errorf("matrix entry %q endOffset: %w", e.Name, err)
		}
		if sc.PollInterval, err = durationOrDefault(e.PollInterval, d.PollInterval); err != nil {
			return nil, fmt.Errorf("matrix entry %q pollInterval: %w", e.Name, err)
		}
		if sc.MaxWait, err = durationOrDefault(e.MaxWait, d.MaxWait); err != nil {
			return nil, fmt.Errorf("matrix entry %q maxWait: %w", e.Name, err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func offsetMicros(offset string, now time.Time) (int64, error) {
	if offset == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(offset)
	if err != nil {
		return 0, err
	}
	return now.Add(d).UnixMicro(), nil
}

func durationOrDefault(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
