package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Memory keeps rooms in process. It gives the same guarantees as Store with
// one mutex in place of row locks, and is its own change feed.
type Memory struct {
	*fanout

	mutex   sync.Mutex
	rooms   map[string]schema.Room
	players map[string][]schema.Player
	rounds  map[string]map[int]schema.Round
}

func NewMemory() *Memory {
	return &Memory{
		fanout:  newFanout(),
		rooms:   make(map[string]schema.Room),
		players: make(map[string][]schema.Player),
		rounds:  make(map[string]map[int]schema.Round),
	}
}

func (m *Memory) CreateRoom(ctx context.Context, room schema.Room, host schema.Player) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.rooms[room.Code]; ok {
		return game.ErrRoomExists
	}
	host.RoomCode = room.Code
	m.rooms[room.Code] = room.Clone()
	m.players[room.Code] = []schema.Player{clonePlayer(host)}
	m.rounds[room.Code] = make(map[int]schema.Round)

	m.publish(
		game.Change{Room: room.Code, Kind: game.RoomChanged},
		game.Change{Room: room.Code, Kind: game.PlayersChanged})
	return nil
}

func (m *Memory) AddPlayer(ctx context.Context, code string, player schema.Player) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return game.ErrRoomNotFound
	}
	if room.State == schema.StateFinished {
		return fmt.Errorf("%w: game is over", game.ErrWrongPhase)
	}
	if len(m.players[code]) >= room.Settings.MaxPlayers {
		return game.ErrRoomFull
	}
	if _, ok := game.Me(m.players[code], player.ID); ok {
		return fmt.Errorf("%w: player %s already joined", game.ErrInvalidTransition, player.ID)
	}

	player.RoomCode = code
	m.players[code] = append(m.players[code], clonePlayer(player))
	m.publish(game.Change{Room: code, Kind: game.PlayersChanged})
	return nil
}

func (m *Memory) SetPlayerReady(ctx context.Context, code, playerID string, ready bool) error {
	return m.updatePlayer(code, playerID, func(p *schema.Player) { p.IsReady = ready })
}

func (m *Memory) SetPlayerActive(ctx context.Context, code, playerID string, active bool) error {
	return m.updatePlayer(code, playerID, func(p *schema.Player) { p.IsActive = active })
}

func (m *Memory) updatePlayer(code, playerID string, update func(*schema.Player)) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.rooms[code]; !ok {
		return game.ErrRoomNotFound
	}
	for i := range m.players[code] {
		if m.players[code][i].ID == playerID {
			update(&m.players[code][i])
			m.publish(game.Change{Room: code, Kind: game.PlayersChanged})
			return nil
		}
	}
	return game.ErrPlayerNotFound
}

func (m *Memory) GetRoom(ctx context.Context, code string) (schema.Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return schema.Room{}, game.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (m *Memory) GetPlayer(ctx context.Context, code, playerID string) (schema.Player, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.rooms[code]; !ok {
		return schema.Player{}, game.ErrRoomNotFound
	}
	p, ok := game.Me(m.players[code], playerID)
	if !ok {
		return schema.Player{}, game.ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

func (m *Memory) ListPlayers(ctx context.Context, code string) ([]schema.Player, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.rooms[code]; !ok {
		return nil, game.ErrRoomNotFound
	}
	return clonePlayers(m.players[code]), nil
}

func (m *Memory) GetRound(ctx context.Context, code string, number int) (schema.Round, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.rooms[code]; !ok {
		return schema.Round{}, game.ErrRoomNotFound
	}
	round, ok := m.rounds[code][number]
	if !ok {
		return schema.Round{}, game.ErrRoundNotFound
	}
	return round.Clone(), nil
}

func (m *Memory) ListRoomsInState(ctx context.Context, states ...schema.State) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	res := []string{}
	for code, room := range m.rooms {
		for _, s := range states {
			if room.State == s {
				res = append(res, code)
				break
			}
		}
	}
	sort.Strings(res)
	return res, nil
}

// Transition works on copies and stores them only once every step succeeded.
func (m *Memory) Transition(ctx context.Context, code string, t game.Transition) (schema.Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return schema.Room{}, game.ErrRoomNotFound
	}
	if room.State != t.From {
		return schema.Room{}, fmt.Errorf("%w: room is %s, expected %s", game.ErrStaleTransition, room.State, t.From)
	}
	if !game.CanTransition(t.From, t.To) {
		return schema.Room{}, fmt.Errorf("%w: %s to %s", game.ErrInvalidTransition, t.From, t.To)
	}

	players := clonePlayers(m.players[code])
	var current *schema.Round
	if r, ok := m.rounds[code][room.CurrentRoundIndex]; ok {
		r = r.Clone()
		current = &r
	}

	if t.Guard != nil {
		if err := t.Guard(room.Clone(), clonePlayers(players), current); err != nil {
			return schema.Room{}, err
		}
	}

	next := room.Clone()
	var changed *schema.Round
	switch {
	case t.NewRound != nil:
		round, err := t.NewRound(room.Clone())
		if err != nil {
			return schema.Room{}, err
		}
		round.RoomCode = code
		round.Number = room.CurrentRoundIndex + 1
		next.CurrentRoundIndex = round.Number
		changed = &round
	case t.Update != nil:
		if current == nil {
			return schema.Room{}, game.ErrRoundNotFound
		}
		if err := t.Update(room.Clone(), current, clonePlayers(players)); err != nil {
			return schema.Room{}, err
		}
		changed = current
	}

	if t.AddScores && changed != nil {
		for i := range players {
			players[i].Score += changed.Scores[players[i].ID]
		}
	}

	next.State = t.To
	m.rooms[code] = next
	changes := []game.Change{{Room: code, Kind: game.RoomChanged}}
	if changed != nil {
		m.rounds[code][changed.Number] = changed.Clone()
		changes = append(changes, game.Change{Room: code, Kind: game.RoundChanged, Round: changed.Number})
	}
	if t.AddScores {
		m.players[code] = players
		changes = append(changes, game.Change{Room: code, Kind: game.PlayersChanged})
	}
	m.publish(changes...)
	return next.Clone(), nil
}

func (m *Memory) UpdateRound(ctx context.Context, code string, number int, state schema.State, mutate func(*schema.Round, []schema.Player) error) (schema.Round, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, ok := m.rooms[code]
	if !ok {
		return schema.Round{}, game.ErrRoomNotFound
	}
	if room.State != state || room.CurrentRoundIndex != number {
		return schema.Round{}, fmt.Errorf("%w: room is %s in round %d", game.ErrWrongPhase, room.State, room.CurrentRoundIndex)
	}
	round, ok := m.rounds[code][number]
	if !ok {
		return schema.Round{}, game.ErrRoundNotFound
	}

	round = round.Clone()
	if err := mutate(&round, clonePlayers(m.players[code])); err != nil {
		return schema.Round{}, err
	}
	m.rounds[code][number] = round.Clone()
	m.publish(game.Change{Room: code, Kind: game.RoundChanged, Round: number})
	return round, nil
}

func clonePlayer(p schema.Player) schema.Player {
	p.SecretHash = append([]byte(nil), p.SecretHash...)
	return p
}

func clonePlayers(players []schema.Player) []schema.Player {
	res := make([]schema.Player, len(players))
	for i, p := range players {
		res[i] = clonePlayer(p)
	}
	return res
}
