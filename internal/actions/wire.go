package actions

import "github.com/Lpaydat/micro-2048-verifier/internal/domain/model"

// Wire-shape structs for query decoding. Kept separate from the domain
// types so field renames on the backend surface as decode changes here,
// not as silent zero values in the verifier.

type leaderboardWire struct {
	LeaderboardID string   `json:"leaderboardId"`
	Name          string   `json:"name"`
	Host          string   `json:"host"`
	ChainID       string   `json:"chainId"`
	TotalBoards   int      `json:"totalBoards"`
	TotalPlayers  int      `json:"totalPlayers"`
	ShardIDs      []string `json:"shardIds"`
}

func (w leaderboardWire) toDomain() model.ObservedTournament {
	shards := make([]model.ChainID, 0, len(w.ShardIDs))
	for _, id := range w.ShardIDs {
		shards = append(shards, model.ChainID(id))
	}
	return model.ObservedTournament{
		ID:           model.TournamentID(w.LeaderboardID),
		Name:         w.Name,
		Host:         w.Host,
		ChainID:      model.ChainID(w.ChainID),
		ShardIDs:     shards,
		TotalBoards:  w.TotalBoards,
		TotalPlayers: w.TotalPlayers,
	}
}

type boardWire struct {
	BoardID       string `json:"boardId"`
	ChainID       string `json:"chainId"`
	ShardID       string `json:"shardId"`
	LeaderboardID string `json:"leaderboardId"`
	Player        string `json:"player"`
}

type playerWire struct {
	Username string `json:"username"`
	ChainID  string `json:"chainId"`
	IsMod    bool   `json:"isMod"`
}

type aggregateStateWire struct {
	Leaderboards []leaderboardWire `json:"leaderboards"`
	Player       *playerWire       `json:"player"`
	Boards       []boardWire       `json:"boards"`
}

func (w aggregateStateWire) toDomain() *AggregateState {
	state := &AggregateState{
		Tournaments: make([]model.ObservedTournament, 0, len(w.Leaderboards)),
		Boards:      make([]model.Board, 0, len(w.Boards)),
	}
	for _, lb := range w.Leaderboards {
		state.Tournaments = append(state.Tournaments, lb.toDomain())
	}
	for _, b := range w.Boards {
		state.Boards = append(state.Boards, model.Board{
			ID:           model.BoardID(b.BoardID),
			ChainID:      model.ChainID(b.ChainID),
			ShardID:      model.ChainID(b.ShardID),
			TournamentID: model.TournamentID(b.LeaderboardID),
			Player:       b.Player,
		})
	}
	if w.Player != nil {
		state.PlayerChain = model.ChainID(w.Player.ChainID)
	}
	return state
}
