package schema

import (
	"time"

	"github.com/lib/pq"
)

type State string

const (
	StateLobby    State = "LOBBY"
	StatePlaying  State = "PLAYING"
	StateVoting   State = "VOTING"
	StateSummary  State = "SUMMARY"
	StateFinished State = "FINISHED"
)

type GameMode string

const (
	ModeClassic        GameMode = "CLASSIC"
	ModeCustom         GameMode = "CUSTOM"
	ModePlayerSelected GameMode = "PLAYER_SELECTED"
	ModeSingle         GameMode = "SINGLE"
	ModeFullRandom     GameMode = "FULL_RANDOM"
)

type ScoringVariant string

const (
	VariantStandard ScoringVariant = "STANDARD"
	VariantHardcore ScoringVariant = "HARDCORE"
	VariantEasy     ScoringVariant = "EASY"
)

// Settings are fixed for the lifetime of a game.
type Settings struct {
	RoundsTotal      int            `json:"roundsTotal"`
	TimePerRound     int            `json:"timePerRound"`
	MaxPlayers       int            `json:"maxPlayers"`
	GameMode         GameMode       `json:"gameMode"`
	ScoringVariant   ScoringVariant `json:"scoringVariant"`
	CustomCategories pq.StringArray `json:"customCategories" gorm:"type:text[]"`
}

func DefaultSettings() Settings {
	return Settings{
		RoundsTotal:      10,
		TimePerRound:     30,
		MaxPlayers:       8,
		GameMode:         ModeClassic,
		ScoringVariant:   VariantStandard,
		CustomCategories: pq.StringArray{},
	}
}

type Room struct {
	Code              string    `json:"id" gorm:"primaryKey;size:6"`
	HostID            string    `json:"hostId" gorm:"notnull"`
	State             State     `json:"state" gorm:"notnull;index"`
	Settings          Settings  `json:"settings" gorm:"embedded;embeddedPrefix:settings_"`
	CurrentRoundIndex int       `json:"currentRoundIndex" gorm:"notnull"`
	CreatedAt         time.Time `json:"createdAt"`
}

func (r Room) Clone() Room {
	r.Settings.CustomCategories = append(pq.StringArray{}, r.Settings.CustomCategories...)
	return r
}
