package fixture

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
)

func testFixture() *Fixture {
	return New(
		API{BaseURL: "http://localhost:8080", MainChain: "main-chain", AppID: "app-2048"},
		Coordinator{Username: "coordinator_run1", Password: "pw", ChainID: "coord-chain"},
		[]model.ObservedTournament{
			{ID: "t-2", Name: "stress_b", ChainID: "lb-2", ShardIDs: []model.ChainID{"s3"}},
			{ID: "t-1", Name: "stress_a", ChainID: "lb-1", ShardIDs: []model.ChainID{"s1", "s2"}},
		},
	)
}

func TestNew_SortsTournamentsByName(t *testing.T) {
	f := testFixture()

	require.Len(t, f.Tournaments, 2)
	assert.Equal(t, "stress_a", f.Tournaments[0].Name)
	assert.Equal(t, "t-1", f.Tournaments[0].ID)
	assert.Equal(t, []string{"s1", "s2"}, f.Tournaments[0].ShardIDs)
	assert.Equal(t, "stress_b", f.Tournaments[1].Name)
	assert.NotEmpty(t, f.GeneratedAt)
	assert.Equal(t, DefaultStress(), f.Stress)
}

func TestWriteFile_ReadFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tournaments.json")
	f := testFixture()

	require.NoError(t, f.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, f.API, got.API)
	assert.Equal(t, f.Coordinator, got.Coordinator)
	assert.Equal(t, f.Tournaments, got.Tournaments)
	assert.Equal(t, f.Stress, got.Stress)
}

func TestWriteFile_LeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tournaments.json")

	require.NoError(t, testFixture().WriteFile(path))

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
