// Package fixture serializes the outcome of a provisioning run so stress
// tooling can replay against known-good tournaments without re-creating them.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
)

// Tournament is one provisioned tournament as addressed by stress tooling.
type Tournament struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ChainID  string   `json:"chainId"`
	ShardIDs []string `json:"shardIds"`
}

// Coordinator carries the credentials of the identity that hosts the
// provisioned tournaments.
type Coordinator struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ChainID  string `json:"chainId"`
}

// API is how to reach the service node the fixture was provisioned against.
type API struct {
	BaseURL   string `json:"baseUrl"`
	MainChain string `json:"mainChainId"`
	AppID     string `json:"appId"`
}

// StressDefaults are starting-point knobs for load generation against the
// fixture. They describe a sensible profile, not a limit.
type StressDefaults struct {
	Players          int `json:"players"`
	BoardsPerPlayer  int `json:"boardsPerPlayer"`
	MovesPerBoard    int `json:"movesPerBoard"`
	MoveIntervalMs   int `json:"moveIntervalMs"`
	RampUpSeconds    int `json:"rampUpSeconds"`
	HoldSeconds      int `json:"holdSeconds"`
	TargetErrorRate  int `json:"targetErrorRatePct"`
	SampleIntervalMs int `json:"sampleIntervalMs"`
}

// Fixture is the full export of one provisioning run.
type Fixture struct {
	GeneratedAt string         `json:"generatedAt"`
	API         API            `json:"api"`
	Coordinator Coordinator    `json:"coordinator"`
	Tournaments []Tournament   `json:"tournaments"`
	Stress      StressDefaults `json:"stressDefaults"`
}

// DefaultStress is the baseline load profile exported with every fixture.
func DefaultStress() StressDefaults {
	return StressDefaults{
		Players:          50,
		BoardsPerPlayer:  2,
		MovesPerBoard:    100,
		MoveIntervalMs:   200,
		RampUpSeconds:    30,
		HoldSeconds:      300,
		TargetErrorRate:  1,
		SampleIntervalMs: 1000,
	}
}

// New assembles a fixture from provisioned tournaments. Tournaments are
// sorted by name so repeated runs diff cleanly.
func New(api API, coord Coordinator, tournaments []model.ObservedTournament) *Fixture {
	f := &Fixture{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		API:         api,
		Coordinator: coord,
		Stress:      DefaultStress(),
	}
	for _, t := range tournaments {
		shards := make([]string, 0, len(t.ShardIDs))
		for _, s := range t.ShardIDs {
			shards = append(shards, s.String())
		}
		f.Tournaments = append(f.Tournaments, Tournament{
			ID:       t.ID.String(),
			Name:     t.Name,
			ChainID:  t.ChainID.String(),
			ShardIDs: shards,
		})
	}
	sort.Slice(f.Tournaments, func(i, j int) bool {
		return f.Tournaments[i].Name < f.Tournaments[j].Name
	})
	return f
}

// WriteFile writes the fixture as indented JSON. The write goes through a
// temp file plus rename so a crash never leaves a truncated fixture behind.
func (f *Fixture) WriteFile(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename fixture: %w", err)
	}
	return nil
}

// ReadFile loads a fixture previously written by WriteFile.
func ReadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}
