package containers

import (
	"fmt"
	"io"

	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
	"github.com/bitterfly/go-chaos/kategorie/utils"
)

// Host is the body of a room creation request. Missing settings take the
// defaults.
type Host struct {
	Name     string           `json:"name"`
	Settings *schema.Settings `json:"settings"`
}

func ParseHost(data io.ReadCloser) (*Host, error) {
	var container interface{} = &Host{}
	res, err := utils.Parse(data, container)
	if err != nil {
		return nil, err
	}

	host, ok := res.(*Host)
	if !ok {
		return nil, fmt.Errorf("could not convert to server Host")
	}
	if err := validName(host.Name); err != nil {
		return nil, err
	}
	return host, nil
}

func (h Host) RoomSettings() schema.Settings {
	if h.Settings == nil {
		return schema.DefaultSettings()
	}
	s := *h.Settings
	defaults := schema.DefaultSettings()
	if s.RoundsTotal <= 0 {
		s.RoundsTotal = defaults.RoundsTotal
	}
	if s.TimePerRound <= 0 {
		s.TimePerRound = defaults.TimePerRound
	}
	if s.MaxPlayers <= 0 {
		s.MaxPlayers = defaults.MaxPlayers
	}
	if s.GameMode == "" {
		s.GameMode = defaults.GameMode
	}
	if s.ScoringVariant == "" {
		s.ScoringVariant = defaults.ScoringVariant
	}
	return s
}

type Join struct {
	Name string `json:"name"`
}

func ParseJoin(data io.ReadCloser) (*Join, error) {
	var container interface{} = &Join{}
	res, err := utils.Parse(data, container)
	if err != nil {
		return nil, err
	}

	join, ok := res.(*Join)
	if !ok {
		return nil, fmt.Errorf("could not convert to server Join")
	}
	if err := validName(join.Name); err != nil {
		return nil, err
	}
	return join, nil
}

// Rejoin exchanges the secret handed out on join for a fresh session token.
type Rejoin struct {
	PlayerID string `json:"playerId"`
	Secret   string `json:"secret"`
}

func ParseRejoin(data io.ReadCloser) (*Rejoin, error) {
	var container interface{} = &Rejoin{}
	res, err := utils.Parse(data, container)
	if err != nil {
		return nil, err
	}

	rejoin, ok := res.(*Rejoin)
	if !ok {
		return nil, fmt.Errorf("could not convert to server Rejoin")
	}
	return rejoin, nil
}

type Flag struct {
	Value bool `json:"value"`
}

func ParseFlag(data io.ReadCloser) (*Flag, error) {
	var container interface{} = &Flag{}
	res, err := utils.Parse(data, container)
	if err != nil {
		return nil, err
	}

	flag, ok := res.(*Flag)
	if !ok {
		return nil, fmt.Errorf("could not convert to server Flag")
	}
	return flag, nil
}

// Session is what a player gets on create, join and rejoin. Secret is only
// set on create and join.
type Session struct {
	SessionToken string        `json:"sessionToken"`
	Secret       string        `json:"secret,omitempty"`
	Player       schema.Player `json:"player"`
	Room         schema.Room   `json:"room"`
}

// Snapshot is the full view of a room a client needs to render it.
type Snapshot struct {
	Room    schema.Room     `json:"room"`
	Players []schema.Player `json:"players"`
	Round   *schema.Round   `json:"round,omitempty"`
	Summary *game.Summary   `json:"summary,omitempty"`
}

const maxNameLength = 24

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return fmt.Errorf("name is longer than %d characters", maxNameLength)
	}
	return nil
}
