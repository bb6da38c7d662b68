package game

import (
	"context"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Transition describes one guarded state change. A store applies it inside a
// single transaction: it locks and re-reads the room, fails with
// ErrStaleTransition unless the room is still in From, runs Guard on the fresh
// data, then writes the round, the scores and the new state together.
type Transition struct {
	From schema.State
	To   schema.State

	// Guard sees the locked room, its players and the current round (nil before
	// the first round). Any error aborts the transition unchanged.
	Guard func(room schema.Room, players []schema.Player, current *schema.Round) error

	// NewRound builds the next round. The store stores it under
	// CurrentRoundIndex+1 and advances the index by one.
	NewRound func(room schema.Room) (schema.Round, error)

	// Update mutates the current round in place.
	Update func(room schema.Room, round *schema.Round, players []schema.Player) error

	// AddScores adds the current round's Scores to the player totals with an
	// atomic increment.
	AddScores bool
}

// Store is the shared record of rooms, players and rounds.
type Store interface {
	CreateRoom(ctx context.Context, room schema.Room, host schema.Player) error
	// AddPlayer fails with ErrRoomFull once the room has Settings.MaxPlayers players.
	AddPlayer(ctx context.Context, code string, player schema.Player) error
	SetPlayerReady(ctx context.Context, code, playerID string, ready bool) error
	SetPlayerActive(ctx context.Context, code, playerID string, active bool) error

	GetRoom(ctx context.Context, code string) (schema.Room, error)
	GetPlayer(ctx context.Context, code, playerID string) (schema.Player, error)
	// ListPlayers returns players in join order.
	ListPlayers(ctx context.Context, code string) ([]schema.Player, error)
	GetRound(ctx context.Context, code string, number int) (schema.Round, error)
	ListRoomsInState(ctx context.Context, states ...schema.State) ([]string, error)

	Transition(ctx context.Context, code string, t Transition) (schema.Room, error)

	// UpdateRound mutates round number while the room is in state and that
	// round is current. Otherwise it fails with ErrWrongPhase.
	UpdateRound(ctx context.Context, code string, number int, state schema.State, mutate func(round *schema.Round, players []schema.Player) error) (schema.Round, error)
}

type ChangeKind string

const (
	RoomChanged    ChangeKind = "room"
	PlayersChanged ChangeKind = "players"
	RoundChanged   ChangeKind = "round"
)

type Change struct {
	Room  string     `json:"room"`
	Kind  ChangeKind `json:"kind"`
	Round int        `json:"round,omitempty"`
}

// Feed delivers change notifications for a room. Deliveries may be dropped
// when a subscriber lags; every change is followed by a fresh read, so only
// the latest one matters.
type Feed interface {
	Subscribe(code string) (<-chan Change, func())
}
