package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lpaydat/micro-2048-verifier/internal/actions"
	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/gql"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService simulates the tournament backend with tunable propagation
// delays and board-creation policy.
type fakeService struct {
	mu sync.Mutex

	// visibleAfter is how many aggregate queries must happen before the
	// created tournament shows up. -1 means never.
	visibleAfter int
	// boardPolicy is one of "accept", "reject", "http500".
	boardPolicy string
	// extraBoards inflates the totalBoards increment to simulate
	// double-counting bugs.
	extraBoards int

	stateQueries int
	created      bool
	name         string
	host         string
	boardMade    bool
	totalBoards  int
	movesCalls   int
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gql.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(req.Query, "leaderboardAction"):
			f.created = true
			settings := req.Variables["settings"].(map[string]any)
			f.name = settings["name"].(string)
			f.host = req.Variables["player"].(string)
			fmt.Fprint(w, `{"data":{"leaderboardAction":"token-xyz"}}`)

		case strings.Contains(req.Query, "updateActiveTournaments"):
			fmt.Fprint(w, `{"data":{"updateActiveTournaments":null}}`)

		case strings.Contains(req.Query, "newBoard"):
			switch f.boardPolicy {
			case "reject":
				fmt.Fprint(w, `{"errors":[{"message":"Tournament is not active"}]}`)
			case "http500":
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, "runtime error")
			default:
				f.boardMade = true
				f.totalBoards += 1 + f.extraBoards
				fmt.Fprint(w, `{"data":{"newBoard":""}}`)
			}

		case strings.Contains(req.Query, "makeMoves"):
			f.movesCalls++
			fmt.Fprint(w, `{"data":{"makeMoves":""}}`)

		default: // aggregate state query
			f.stateQueries++
			fmt.Fprint(w, f.stateJSON())
		}
	})
}

func (f *fakeService) snapshot() (stateQueries, movesCalls int, boardMade bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateQueries, f.movesCalls, f.boardMade
}

func (f *fakeService) stateJSON() string {
	visible := f.created && f.visibleAfter >= 0 && f.stateQueries > f.visibleAfter

	var lbs []map[string]any
	if visible {
		lbs = append(lbs, map[string]any{
			"leaderboardId": "t-1",
			"name":          f.name,
			"host":          f.host,
			"chainId":       "lb-chain",
			"totalBoards":   f.totalBoards,
			"totalPlayers":  1,
			"shardIds":      []string{"s1", "s2"},
		})
	}

	var boards []map[string]any
	if f.boardMade {
		boards = append(boards, map[string]any{
			"boardId":       "b-1",
			"chainId":       "player-chain",
			"shardId":       "s1",
			"leaderboardId": "t-1",
			"player":        f.host,
		})
	}

	payload := map[string]any{
		"data": map[string]any{
			"leaderboards": lbs,
			"player":       map[string]any{"username": f.host, "chainId": "player-chain", "isMod": false},
			"boards":       boards,
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func newVerifier(t *testing.T, f *fakeService) *Verifier {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	client := gql.NewClient(5*time.Second, testLogger())
	acts := actions.New(client, srv.URL, "main-chain", "app-2048", testLogger())
	return New(acts, testLogger())
}

func fastScenario(name string, window model.Window, active bool) model.Scenario {
	return model.Scenario{
		Name:           name,
		Window:         window,
		ExpectedActive: active,
		Shards:         2,
		PollInterval:   5 * time.Millisecond,
		MaxWait:        300 * time.Millisecond,
	}
}

func testPlayer() model.Player {
	return model.Player{Username: "test_run1", Secret: "pass_run1", ChainID: "player-chain"}
}

func TestVerify_ActiveScenario_AcceptedAsExpected(t *testing.T) {
	f := &fakeService{visibleAfter: 2, boardPolicy: "accept"}
	v := newVerifier(t, f)

	out := v.Verify(context.Background(), fastScenario("active_tournament", model.Window{}, true), testPlayer())

	assert.Equal(t, model.VerdictAcceptedAsExpected, out.Verdict)
	assert.Equal(t, model.TournamentID("t-1"), out.Tournament.ID)
	assert.Equal(t, model.BoardID("b-1"), out.Board)
	_, moves, _ := f.snapshot()
	assert.Equal(t, 1, moves, "moves must follow the confirmed board")
	assert.NotEmpty(t, out.Evidence)
}

func TestVerify_ActiveScenario_NeverVisible_TimesOut(t *testing.T) {
	f := &fakeService{visibleAfter: -1, boardPolicy: "accept"}
	v := newVerifier(t, f)

	start := time.Now()
	out := v.Verify(context.Background(), fastScenario("active_tournament", model.Window{}, true), testPlayer())

	assert.Equal(t, model.VerdictTimedOut, out.Verdict)
	assert.False(t, out.Verdict.Expected())
	queries, _, _ := f.snapshot()
	assert.Greater(t, queries, 1, "must poll repeatedly before giving up")
	assert.Less(t, time.Since(start), 2*time.Second)
}

// A timed-out scenario must carry the intermediate aggregate snapshots in its
// evidence trail, one per poll attempt, so the convergence failure can be
// diagnosed from the Outcome alone.
func TestVerify_TimedOutEvidenceCarriesPollAttempts(t *testing.T) {
	f := &fakeService{visibleAfter: -1, boardPolicy: "accept"}
	v := newVerifier(t, f)

	out := v.Verify(context.Background(), fastScenario("active_tournament", model.Window{}, true), testPlayer())
	require.Equal(t, model.VerdictTimedOut, out.Verdict)

	var attempts []Step
	for _, s := range out.Evidence {
		if s.Name == "await_visibility.attempt" {
			attempts = append(attempts, s)
		}
	}
	require.Greater(t, len(attempts), 1, "evidence must record every poll attempt")
	for _, a := range attempts {
		require.NoError(t, a.Err)
		require.NotNil(t, a.State, "successful fetches must carry the observed state")
		assert.Empty(t, a.State.Tournaments)
	}
	assert.False(t, attempts[0].At.IsZero())
}

func TestVerify_InactiveScenario_HiddenIsRejectedAsExpected(t *testing.T) {
	now := time.Now().UnixMicro()
	f := &fakeService{visibleAfter: -1}
	v := newVerifier(t, f)

	sc := fastScenario("past_tournament", model.Window{Start: now - 3600_000_000, End: now - 1800_000_000}, false)
	out := v.Verify(context.Background(), sc, testPlayer())

	assert.Equal(t, model.VerdictRejectedAsExpected, out.Verdict)
	_, _, boardMade := f.snapshot()
	assert.False(t, boardMade, "no board probe possible while hidden")
}

func TestVerify_InactiveScenario_VisibleButBoardRejected(t *testing.T) {
	now := time.Now().UnixMicro()
	f := &fakeService{visibleAfter: 0, boardPolicy: "reject"}
	v := newVerifier(t, f)

	sc := fastScenario("past_tournament", model.Window{Start: now - 3600_000_000, End: now - 1800_000_000}, false)
	out := v.Verify(context.Background(), sc, testPlayer())

	assert.Equal(t, model.VerdictRejectedAsExpected, out.Verdict)
}

func TestVerify_InactiveScenario_BoardAcceptedIsUnexpectedAccept(t *testing.T) {
	now := time.Now().UnixMicro()
	f := &fakeService{visibleAfter: 0, boardPolicy: "accept"}
	v := newVerifier(t, f)

	sc := fastScenario("past_tournament", model.Window{Start: now - 3600_000_000, End: now - 1800_000_000}, false)
	out := v.Verify(context.Background(), sc, testPlayer())

	assert.Equal(t, model.VerdictUnexpectedAccept, out.Verdict)
}

// A raw 500 during the board probe is an infrastructure fault. It must never
// be read as the backend validating the window.
func TestVerify_InactiveScenario_HTTP500IsTransportError(t *testing.T) {
	now := time.Now().UnixMicro()
	f := &fakeService{visibleAfter: 0, boardPolicy: "http500"}
	v := newVerifier(t, f)

	sc := fastScenario("past_tournament", model.Window{Start: now - 3600_000_000, End: now - 1800_000_000}, false)
	out := v.Verify(context.Background(), sc, testPlayer())

	assert.Equal(t, model.VerdictTransportError, out.Verdict)
	assert.Error(t, out.Err)
}

func TestVerify_ActiveScenario_DoubleCountIsUnexpectedAccept(t *testing.T) {
	f := &fakeService{visibleAfter: 0, boardPolicy: "accept", extraBoards: 1}
	v := newVerifier(t, f)

	out := v.Verify(context.Background(), fastScenario("active_tournament", model.Window{}, true), testPlayer())

	assert.Equal(t, model.VerdictUnexpectedAccept, out.Verdict,
		"totalBoards must increment by exactly one from the baseline")
}

func TestVerify_UnreachableBackendIsTransportError(t *testing.T) {
	client := gql.NewClient(200*time.Millisecond, testLogger())
	acts := actions.New(client, "http://127.0.0.1:1", "main-chain", "app-2048", testLogger())
	v := New(acts, testLogger())

	out := v.Verify(context.Background(), fastScenario("active_tournament", model.Window{}, true), testPlayer())

	assert.Equal(t, model.VerdictTransportError, out.Verdict)
	assert.Error(t, out.Err)
}

// Run deadline: a scenario still awaiting convergence when the overall run
// context dies must land on TimedOut, not hang or panic.
func TestVerify_RunDeadlineForcesTimeout(t *testing.T) {
	f := &fakeService{visibleAfter: -1, boardPolicy: "accept"}
	v := newVerifier(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sc := fastScenario("active_tournament", model.Window{}, true)
	sc.MaxWait = time.Minute
	out := v.Verify(ctx, sc, testPlayer())

	assert.Equal(t, model.VerdictTimedOut, out.Verdict)
}

// Declared-active scenarios whose bounded window has already closed by
// verification time are verified against the wall clock, not the
// declaration.
func TestVerify_WindowRecomputedAtVerificationTime(t *testing.T) {
	now := time.Now().UnixMicro()
	f := &fakeService{visibleAfter: 0, boardPolicy: "reject"}
	v := newVerifier(t, f)

	sc := fastScenario("just_expired", model.Window{Start: now - 10_000_000, End: now - 1_000_000}, true)
	out := v.Verify(context.Background(), sc, testPlayer())

	assert.Equal(t, model.VerdictRejectedAsExpected, out.Verdict)
}
