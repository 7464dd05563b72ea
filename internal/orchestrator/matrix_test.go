package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = MatrixDefaults{
	Shards:       2,
	PollInterval: time.Second,
	MaxWait:      30 * time.Second,
}

func TestDefaultMatrix(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	scenarios := DefaultMatrix(now, "run1", testDefaults)

	require.Len(t, scenarios, 4)

	byName := make(map[string]int)
	for i, sc := range scenarios {
		assert.Contains(t, sc.Name, "_run1")
		assert.Equal(t, 2, sc.Shards)
		assert.Equal(t, time.Second, sc.PollInterval)
		byName[sc.Name] = i
	}

	past := scenarios[byName["past_tournament_run1"]]
	assert.False(t, past.ExpectedActive)
	assert.False(t, past.ExpectedActiveAt(now))
	assert.Less(t, past.Window.End, now.UnixMicro())

	future := scenarios[byName["future_tournament_run1"]]
	assert.False(t, future.ExpectedActiveAt(now))
	assert.Greater(t, future.Window.Start, now.UnixMicro())

	windowed := scenarios[byName["windowed_tournament_run1"]]
	assert.True(t, windowed.ExpectedActiveAt(now))
	assert.False(t, windowed.Window.Unbounded())

	active := scenarios[byName["active_tournament_run1"]]
	assert.True(t, active.ExpectedActiveAt(now))
	assert.True(t, active.Window.Unbounded(), "active_tournament runs without window bounds")
}

func writeMatrix(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMatrix(t *testing.T) {
	path := writeMatrix(t, `
scenarios:
  - name: closes_soon
    startOffset: -1h
    endOffset: 5m
    expectedActive: true
    shards: 8
    pollInterval: 250ms
  - name: eternal
    expectedActive: true
`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	scenarios, err := LoadMatrix(path, now, "run1", testDefaults)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)

	soon := scenarios[0]
	assert.Equal(t, "closes_soon_run1", soon.Name)
	assert.Equal(t, now.Add(-time.Hour).UnixMicro(), soon.Window.Start)
	assert.Equal(t, now.Add(5*time.Minute).UnixMicro(), soon.Window.End)
	assert.True(t, soon.ExpectedActive)
	assert.Equal(t, 8, soon.Shards)
	assert.Equal(t, 250*time.Millisecond, soon.PollInterval)
	assert.Equal(t, testDefaults.MaxWait, soon.MaxWait)

	eternal := scenarios[1]
	assert.True(t, eternal.Window.Unbounded())
	assert.Equal(t, testDefaults.Shards, eternal.Shards)
}

func TestLoadMatrix_Errors(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "empty file",
			content: "scenarios: []",
			wantErr: "declares no scenarios",
		},
		{
			name:    "missing name",
			content: "scenarios:\n  - expectedActive: true",
			wantErr: "has no name",
		},
		{
			name:    "duplicate name",
			content: "scenarios:\n  - name: a\n  - name: a",
			wantErr: "appears twice",
		},
		{
			name:    "bad offset",
			content: "scenarios:\n  - name: a\n    startOffset: yesterday",
			wantErr: "startOffset",
		},
		{
			name:    "negative poll interval",
			content: "scenarios:\n  - name: a\n    pollInterval: -1s",
			wantErr: "pollInterval",
		},
		{
			name:    "not yaml",
			content: "{{{",
			wantErr: "decode matrix file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeMatrix(t, tt.content)
			_, err := LoadMatrix(path, now, "run1", testDefaults)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMatrix_MissingFile(t *testing.T) {
	_, err := LoadMatrix(filepath.Join(t.TempDir(), "absent.yaml"), time.Now(), "run1", testDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read matrix file")
}
