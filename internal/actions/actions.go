// Package actions maps typed domain arguments onto the exact GraphQL wire
// contract of the tournament service. Each executor is one transport call
// plus a decode step; failures pass through unchanged so the verifier can
// classify them against the scenario's expectation.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Lpaydat/micro-2048-verifier/internal/domain/model"
	"github.com/Lpaydat/micro-2048-verifier/internal/gql"
)

// Operation texts are static. All caller data goes through variables; the
// transport layer JSON-encodes them, which closes the injection hole the
// old string-formatted query bodies had.
const (
	registerPlayerMutation = `mutation Register($username: String!, $passwordHash: String!) {
  registerPlayer(username: $username, passwordHash: $passwordHash)
}`

	createTournamentMutation = `mutation CreateTournament($leaderboardId: String!, $settings: LeaderboardSettings!, $player: String!, $passwordHash: String!) {
  leaderboardAction(leaderboardId: $leaderboardId, action: Create, settings: $settings, player: $player, passwordHash: $passwordHash)
}`

	newBoardMutation = `mutation NewBoard($player: String!, $passwordHash: String!, $timestamp: String!, $leaderboardId: String!) {
  newBoard(player: $player, passwordHash: $passwordHash, timestamp: $timestamp, leaderboardId: $leaderboardId)
}`

	makeMovesMutation = `mutation MakeMoves($boardId: String!, $moves: String!, $player: String!, $passwordHash: String!) {
  makeMoves(boardId: $boardId, moves: $moves, player: $player, passwordHash: $passwordHash)
}`

	updateActiveTournamentsMutation = `mutation UpdateTournaments {
  updateActiveTournaments
}`

	aggregateStateQuery = `query State($username: String!) {
  leaderboards { leaderboardId name host chainId totalBoards totalPlayers shardIds }
  player(username: $username) { username chainId isMod }
  boards { boardId chainId shardId leaderboardId player }
}`

	leaderboardsQuery = `query Leaderboards {
  leaderboards { leaderboardId name host chainId totalBoards totalPlayers shardIds }
}`
)

// Actions issues mutations and queries against the service. Registration,
// tournament administration and the aggregate view live on the main chain;
// board creation and moves are submitted on the acting player's own chain.
type Actions struct {
	client  *gql.Client
	baseURL string
	main    model.ChainID
	app     model.AppID
	logger  *slog.Logger
}

func New(client *gql.Client, baseURL string, main model.ChainID, app model.AppID, logger *slog.Logger) *Actions {
	return &Actions{
		client:  client,
		baseURL: baseURL,
		main:    main,
		app:     app,
		logger:  logger.With("component", "actions"),
	}
}

// Endpoint builds the address of any chain under the same node and app.
func (a *Actions) Endpoint(chain model.ChainID) gql.Endpoint {
	return gql.Endpoint{BaseURL: a.baseURL, Chain: chain, App: a.app}
}

// MainEndpoint addresses the main chain.
func (a *Actions) MainEndpoint() gql.Endpoint {
	return a.Endpoint(a.main)
}

// RegisterPlayer registers the player on the main chain and returns the
// registration token.
func (a *Actions) RegisterPlayer(ctx context.Context, player model.Player) (string, error) {
	data, err := a.client.Execute(ctx, a.MainEndpoint(), registerPlayerMutation, map[string]any{
		"username":     player.Username,
		"passwordHash": player.Secret,
	})
	if err != nil {
		return "", err
	}
	token := stringField(data, "registerPlayer")
	a.logger.Debug("player registered", "username", player.Username)
	return token, nil
}

// CreateTournament submits a Create leaderboardAction on the main chain.
// The returned token is an opaque success indicator only. It MUST NOT be
// used as the tournament id in later lookups; the backend does not echo it
// back from queries on every chain. Lookups go through (name, host).
func (a *Actions) CreateTournament(ctx context.Context, name string, window model.Window, shards int, player model.Player) (string, error) {
	if shards < 1 {
		shards = 1
	}
	data, err := a.client.Execute(ctx, a.MainEndpoint(), createTournamentMutation, map[string]any{
		"leaderboardId": "",
		"settings": map[string]any{
			"name":        name,
			"startTime":   strconv.FormatInt(window.Start, 10),
			"endTime":     strconv.FormatInt(window.End, 10),
			"shardNumber": shards,
		},
		"player":       player.Username,
		"passwordHash": player.Secret,
	})
	if err != nil {
		return "", err
	}
	return stringField(data, "leaderboardAction"), nil
}

// CreateBoard submits a newBoard mutation on the acting player's chain.
// Success is a submission acknowledgement, not confirmed state; the board
// only exists once a follow-up boards query shows it.
func (a *Actions) CreateBoard(ctx context.Context, player model.Player, id model.TournamentID, timestamp int64) error {
	if player.ChainID == "" {
		return fmt.Errorf("player %s has no chain id yet", player.Username)
	}
	_, err := a.client.Execute(ctx, a.Endpoint(player.ChainID), newBoardMutation, map[string]any{
		"player":        player.Username,
		"passwordHash":  player.Secret,
		"timestamp":     strconv.FormatInt(timestamp, 10),
		"leaderboardId": id.String(),
	})
	return err
}

// SubmitMoves validates the sequence locally, then submits it on the acting
// player's chain. A non-monotonic sequence never reaches the network.
func (a *Actions) SubmitMoves(ctx context.Context, player model.Player, board model.BoardID, moves []Move) error {
	encoded, err := EncodeMoves(moves)
	if err != nil {
		return err
	}
	if player.ChainID == "" {
		return fmt.Errorf("player %s has no chain id yet", player.Username)
	}
	_, err = a.client.Execute(ctx, a.Endpoint(player.ChainID), makeMovesMutation, map[string]any{
		"boardId":      board.String(),
		"moves":        encoded,
		"player":       player.Username,
		"passwordHash": player.Secret,
	})
	return err
}

// RefreshActiveTournaments forces the main chain to rebuild its active
// tournament cache.
func (a *Actions) RefreshActiveTournaments(ctx context.Context) error {
	_, err := a.client.Execute(ctx, a.MainEndpoint(), updateActiveTournamentsMutation, nil)
	return err
}

// AggregateState is everything one poll cycle needs, fetched in a single
// round trip to keep poll latency down.
type AggregateState struct {
	Tournaments []model.ObservedTournament
	Boards      []model.Board
	PlayerChain model.ChainID
}

// QueryAggregatedState fetches the combined view from the given chain.
func (a *Actions) QueryAggregatedState(ctx context.Context, chain model.ChainID, username string) (*AggregateState, error) {
	data, err := a.client.Execute(ctx, a.Endpoint(chain), aggregateStateQuery, map[string]any{
		"username": username,
	})
	if err != nil {
		return nil, err
	}

	var wire aggregateStateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &gql.DecodeError{Err: err}
	}
	return wire.toDomain(), nil
}

// QueryLeaderboards fetches only the leaderboard set from a chain. Used to
// read authoritative totals off a tournament's own leaderboard chain.
func (a *Actions) QueryLeaderboards(ctx context.Context, chain model.ChainID) ([]model.ObservedTournament, error) {
	data, err := a.client.Execute(ctx, a.Endpoint(chain), leaderboardsQuery, nil)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Leaderboards []leaderboardWire `json:"leaderboards"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &gql.DecodeError{Err: err}
	}

	tournaments := make([]model.ObservedTournament, 0, len(wire.Leaderboards))
	for _, lb := range wire.Leaderboards {
		tournaments = append(tournaments, lb.toDomain())
	}
	return tournaments, nil
}

// stringField extracts a scalar mutation result. The backend's return values
// are success tokens of varying shape, so anything non-string is kept as its
// compact JSON rendering.
func stringField(data json.RawMessage, field string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return string(data)
	}
	raw, ok := payload[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
