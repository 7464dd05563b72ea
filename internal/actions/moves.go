package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Direction is a 2048 move direction as the backend spells it.
type Direction string

const (
	DirectionUp    Direction = "Up"
	DirectionDown  Direction = "Down"
	DirectionLeft  Direction = "Left"
	DirectionRight Direction = "Right"
)

// Move pairs a direction with its microsecond epoch timestamp.
type Move struct {
	Direction Direction
	Timestamp int64
}

// ErrNonMonotonicMoves is a local precondition failure: the backend requires
// strictly increasing move timestamps, so a violating sequence is rejected
// here before any network call.
var ErrNonMonotonicMoves = errors.New("move timestamps must be strictly increasing")

// EncodeMoves validates the sequence and encodes it as the JSON string the
// makeMoves mutation expects: [["Down","100000000"],["Right","100001000"]].
func EncodeMoves(moves []Move) (string, error) {
	if len(moves) == 0 {
		return "", errors.New("empty move sequence")
	}
	pairs := make([][]string, 0, len(moves))
	var prev int64
	for i, m := range moves {
		if i > 0 && m.Timestamp <= prev {
			return "", fmt.Errorf("move %d at %d after %d: %w", i, m.Timestamp, prev, ErrNonMonotonicMoves)
		}
		prev = m.Timestamp
		pairs = append(pairs, []string{string(m.Direction), strconv.FormatInt(m.Timestamp, 10)})
	}
	encoded, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("marshal moves: %w", err)
	}
	return string(encoded), nil
}

// MovePattern builds n moves cycling Down/Right/Down/Left starting at base,
// stepping the timestamp by step microseconds per move.
func MovePattern(n int, base, step int64) []Move {
	pattern := []Direction{DirectionDown, DirectionRight, DirectionDown, DirectionLeft}
	moves := make([]Move, 0, n)
	for i := 0; i < n; i++ {
		moves = append(moves, Move{
			Direction: pattern[i%len(pattern)],
			Timestamp: base + int64(i)*step,
		})
	}
	return moves
}
