package model

// ChainID is an opaque chain identifier. The harness never inspects its
// structure; it is only compared for equality and used to build endpoint
// addresses.
type ChainID string

func (c ChainID) String() string {
	return string(c)
}

type AppID string

func (a AppID) String() string {
	return string(a)
}

type TournamentID string

func (t TournamentID) String() string {
	return string(t)
}

type BoardID string

func (b BoardID) String() string {
	return string(b)
}

// Player holds the credentials used to sign mutations plus the player's
// own chain, discovered from the aggregate query after registration.
type Player struct {
	Username string
	Secret   string
	ChainID  ChainID
}
