package model

// ObservedTournament is one leaderboard entry as returned by the aggregate
// query. It is refreshed wholesale on every poll cycle and never patched
// field by field.
type ObservedTournament struct {
	ID           TournamentID
	Name         string
	Host         string
	ChainID      ChainID
	ShardIDs     []ChainID
	TotalBoards  int
	TotalPlayers int
}

// Board is one board row from the aggregate query. Its existence is only
// trusted after a follow-up query; newBoard returns a submission ack, not
// confirmed state.
type Board struct {
	ID           BoardID
	ChainID      ChainID
	ShardID      ChainID
	TournamentID TournamentID
	Player       string
}

// MatchTournament finds the tournament belonging to (name, host) in an
// observed set. Creation mutations return a non-deterministic success token,
// not a durable key, so the (name, host) pair is the only safe join between
// a scenario and what the backend echoes back.
func MatchTournament(observed []ObservedTournament, name, host string) (ObservedTournament, bool) {
	for _, t := range observed {
		if t.ID == "" {
			continue
		}
		if t.Name == name && t.Host == host {
			return t, true
		}
	}
	return ObservedTournament{}, false
}

// FindBoard returns the board owned by player inside tournament id, if any.
func FindBoard(boards []Board, player string, id TournamentID) (Board, bool) {
	for _, b := range boards {
		if b.Player == player && b.TournamentID == id {
			return b, true
		}
	}
	return Board{}, false
}
