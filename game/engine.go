package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

const (
	DefaultLeadTime = 2 * time.Second
	codeAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength      = 6
	codeAttempts    = 5
)

// errNotDue aborts a driver transition whose trigger condition does not hold.
var errNotDue = errors.New("not-due")

type Config struct {
	LeadTime time.Duration
	Now      func() time.Time
	Rand     *rand.Rand
}

// Engine runs the room state machine against a shared Store. It keeps no room
// state of its own, so any number of engines may drive the same rooms.
type Engine struct {
	store    Store
	oracle   Oracle
	leadTime time.Duration
	now      func() time.Time

	rngMutex sync.Mutex
	rng      *rand.Rand
}

func New(store Store, oracle Oracle, config Config) *Engine {
	if config.LeadTime <= 0 {
		config.LeadTime = DefaultLeadTime
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Rand == nil {
		config.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store:    store,
		oracle:   oracle,
		leadTime: config.LeadTime,
		now:      config.Now,
		rng:      config.Rand,
	}
}

func (e *Engine) Room(ctx context.Context, code string) (schema.Room, error) {
	return e.store.GetRoom(ctx, code)
}

func (e *Engine) Players(ctx context.Context, code string) ([]schema.Player, error) {
	return e.store.ListPlayers(ctx, code)
}

func (e *Engine) Player(ctx context.Context, code, playerID string) (schema.Player, error) {
	return e.store.GetPlayer(ctx, code, playerID)
}

func (e *Engine) Round(ctx context.Context, code string, number int) (schema.Round, error) {
	return e.store.GetRound(ctx, code, number)
}

// CreateRoom opens a new lobby with host as its only player. The room code is
// drawn at random and redrawn on collision.
func (e *Engine) CreateRoom(ctx context.Context, settings schema.Settings, host schema.Player) (schema.Room, error) {
	if err := ValidateSettings(settings); err != nil {
		log.Warn().Err(err).Msg("creating room with questionable settings")
	}

	now := e.now()
	host.IsHost = true
	host.IsActive = true
	host.JoinedAt = now

	for i := 0; i < codeAttempts; i++ {
		room := schema.Room{
			Code:      e.newCode(),
			HostID:    host.ID,
			State:     schema.StateLobby,
			Settings:  settings,
			CreatedAt: now,
		}
		host.RoomCode = room.Code

		err := e.store.CreateRoom(ctx, room, host)
		if errors.Is(err, ErrRoomExists) {
			continue
		}
		if err != nil {
			return schema.Room{}, err
		}
		log.Info().Str("room", room.Code).Str("host", host.ID).Msg("room created")
		return room, nil
	}
	return schema.Room{}, fmt.Errorf("%w: no free room code after %d attempts", ErrRoomExists, codeAttempts)
}

func (e *Engine) JoinRoom(ctx context.Context, code string, player schema.Player) (schema.Player, error) {
	player.RoomCode = strings.ToUpper(code)
	player.IsHost = false
	player.IsReady = false
	player.IsActive = true
	player.JoinedAt = e.now()

	if err := e.store.AddPlayer(ctx, player.RoomCode, player); err != nil {
		return schema.Player{}, err
	}
	log.Info().Str("room", player.RoomCode).Str("player", player.ID).Msg("player joined")
	return player, nil
}

func (e *Engine) SetReady(ctx context.Context, code, playerID string, ready bool) error {
	return e.store.SetPlayerReady(ctx, code, playerID, ready)
}

func (e *Engine) SetActive(ctx context.Context, code, playerID string, active bool) error {
	return e.store.SetPlayerActive(ctx, code, playerID, active)
}

// StartRound moves a LOBBY or SUMMARY room into a fresh PLAYING round.
func (e *Engine) StartRound(ctx context.Context, code, callerID string) (schema.Round, error) {
	room, err := e.store.GetRoom(ctx, code)
	if err != nil {
		return schema.Round{}, err
	}
	if room.State != schema.StateLobby && room.State != schema.StateSummary {
		return schema.Round{}, fmt.Errorf("%w: cannot start a round from %s", ErrInvalidTransition, room.State)
	}
	return e.startRound(ctx, code, callerID, room.State)
}

// NextRound is the SUMMARY "next round" action.
func (e *Engine) NextRound(ctx context.Context, code, callerID string) (schema.Round, error) {
	if err := e.requireState(ctx, code, schema.StateSummary); err != nil {
		return schema.Round{}, err
	}
	return e.startRound(ctx, code, callerID, schema.StateSummary)
}

func (e *Engine) requireState(ctx context.Context, code string, state schema.State) error {
	room, err := e.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.State != state {
		return fmt.Errorf("%w: room is %s, not %s", ErrInvalidTransition, room.State, state)
	}
	return nil
}

func (e *Engine) startRound(ctx context.Context, code, callerID string, from schema.State) (schema.Round, error) {
	var round schema.Round
	room, err := e.store.Transition(ctx, code, Transition{
		From: from,
		To:   schema.StatePlaying,
		Guard: func(room schema.Room, _ []schema.Player, _ *schema.Round) error {
			if !IsHost(room, callerID) {
				return ErrNotHost
			}
			if room.State == schema.StateSummary && room.CurrentRoundIndex >= room.Settings.RoundsTotal {
				return fmt.Errorf("%w: all %d rounds played", ErrInvalidTransition, room.Settings.RoundsTotal)
			}
			return nil
		},
		NewRound: func(room schema.Room) (schema.Round, error) {
			round = e.buildRound(room)
			return round, nil
		},
	})
	if err != nil {
		e.logFailure(code, from, schema.StatePlaying, err)
		return schema.Round{}, err
	}
	log.Info().Str("room", code).Int("round", room.CurrentRoundIndex).Str("letter", round.Letter).Msg("round started")
	return round, nil
}

func (e *Engine) buildRound(room schema.Room) schema.Round {
	if err := ValidateSettings(room.Settings); err != nil {
		log.Warn().Str("room", room.Code).Err(err).Msg("falling back while selecting categories")
	}

	e.rngMutex.Lock()
	selection := SelectRound(room.Settings, e.rng)
	e.rngMutex.Unlock()

	start := e.now().Add(e.leadTime)
	end := start.Add(time.Duration(room.Settings.TimePerRound) * time.Second)
	return schema.Round{
		RoomCode:   room.Code,
		Number:     room.CurrentRoundIndex + 1,
		Letter:     selection.Letter,
		Categories: selection.Categories,
		StartTime:  &start,
		EndTime:    &end,
		Answers:    schema.AnswerSheet{},
		Votes:      schema.Ballot{},
		Scores:     schema.Scores{},
	}
}

// SubmitAnswers records a player's answers for the current round and then
// tries to close the round.
func (e *Engine) SubmitAnswers(ctx context.Context, code, playerID string, answers schema.Answers) error {
	room, err := e.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.State != schema.StatePlaying {
		return fmt.Errorf("%w: answers are collected while playing", ErrWrongPhase)
	}

	_, err = e.store.UpdateRound(ctx, code, room.CurrentRoundIndex, schema.StatePlaying,
		func(round *schema.Round, players []schema.Player) error {
			if _, ok := Me(players, playerID); !ok {
				return ErrPlayerNotFound
			}
			return RecordAnswer(round, playerID, answers)
		})
	if err != nil {
		return err
	}

	if _, err := e.CloseAnswers(ctx, code); err != nil {
		log.Error().Str("room", code).Err(err).Msg("closing answers after submission")
	}
	return nil
}

// CastVote records a vote on the current round's ballot and then tries to
// close voting.
func (e *Engine) CastVote(ctx context.Context, code, voterID, category, word string, accept bool) error {
	room, err := e.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.State != schema.StateVoting {
		return fmt.Errorf("%w: votes are cast while voting", ErrWrongPhase)
	}

	_, err = e.store.UpdateRound(ctx, code, room.CurrentRoundIndex, schema.StateVoting,
		func(round *schema.Round, players []schema.Player) error {
			if _, ok := Me(players, voterID); !ok {
				return ErrPlayerNotFound
			}
			return CastVote(round, category, word, voterID, accept)
		})
	if err != nil {
		return err
	}

	if _, err := e.CloseVoting(ctx, code); err != nil {
		log.Error().Str("room", code).Err(err).Msg("closing voting after vote")
	}
	return nil
}

// CloseAnswers moves PLAYING to VOTING once every active player has answered
// or the deadline passed. It reports whether this call made the move; losing
// a race or calling too early is not an error.
func (e *Engine) CloseAnswers(ctx context.Context, code string) (bool, error) {
	now := e.now()
	_, err := e.store.Transition(ctx, code, Transition{
		From: schema.StatePlaying,
		To:   schema.StateVoting,
		Guard: func(_ schema.Room, players []schema.Player, current *schema.Round) error {
			if current == nil {
				return ErrRoundNotFound
			}
			if !IsComplete(*current, ActivePlayerIDs(players), now) {
				return errNotDue
			}
			return nil
		},
		Update: func(_ schema.Room, round *schema.Round, _ []schema.Player) error {
			round.Votes = PlanVotes(*round)
			return nil
		},
	})
	return e.driven(code, schema.StatePlaying, schema.StateVoting, err)
}

// CloseVoting moves VOTING to SUMMARY once every ballot entry reached quorum,
// scoring the round and adding the points to player totals.
func (e *Engine) CloseVoting(ctx context.Context, code string) (bool, error) {
	_, err := e.store.Transition(ctx, code, Transition{
		From: schema.StateVoting,
		To:   schema.StateSummary,
		Guard: func(_ schema.Room, players []schema.Player, current *schema.Round) error {
			if current == nil {
				return ErrRoundNotFound
			}
			if !IsVotingComplete(*current, players) {
				return errNotDue
			}
			return nil
		},
		Update: func(room schema.Room, round *schema.Round, players []schema.Player) error {
			round.Scores = ScoreRound(*round, players, room.Settings.ScoringVariant, e.oracle)
			return nil
		},
		AddScores: true,
	})
	return e.driven(code, schema.StateVoting, schema.StateSummary, err)
}

// Advance makes whichever driver transition the room's state calls for.
func (e *Engine) Advance(ctx context.Context, code string) (bool, error) {
	room, err := e.store.GetRoom(ctx, code)
	if err != nil {
		return false, err
	}
	switch room.State {
	case schema.StatePlaying:
		return e.CloseAnswers(ctx, code)
	case schema.StateVoting:
		return e.CloseVoting(ctx, code)
	}
	return false, nil
}

func (e *Engine) Finish(ctx context.Context, code, callerID string) (schema.Room, error) {
	if err := e.requireState(ctx, code, schema.StateSummary); err != nil {
		return schema.Room{}, err
	}
	room, err := e.store.Transition(ctx, code, Transition{
		From: schema.StateSummary,
		To:   schema.StateFinished,
		Guard: func(room schema.Room, _ []schema.Player, _ *schema.Round) error {
			if !IsHost(room, callerID) {
				return ErrNotHost
			}
			if room.CurrentRoundIndex < room.Settings.RoundsTotal {
				return fmt.Errorf("%w: %d of %d rounds played", ErrInvalidTransition, room.CurrentRoundIndex, room.Settings.RoundsTotal)
			}
			return nil
		},
	})
	if err != nil {
		e.logFailure(code, schema.StateSummary, schema.StateFinished, err)
		return schema.Room{}, err
	}
	log.Info().Str("room", code).Msg("game finished")
	return room, nil
}

func (e *Engine) ReturnToLobby(ctx context.Context, code, callerID string) (schema.Room, error) {
	if err := e.requireState(ctx, code, schema.StateSummary); err != nil {
		return schema.Room{}, err
	}
	room, err := e.store.Transition(ctx, code, Transition{
		From: schema.StateSummary,
		To:   schema.StateLobby,
		Guard: func(room schema.Room, _ []schema.Player, _ *schema.Round) error {
			if !IsHost(room, callerID) {
				return ErrNotHost
			}
			return nil
		},
	})
	if err != nil {
		e.logFailure(code, schema.StateSummary, schema.StateLobby, err)
		return schema.Room{}, err
	}
	log.Info().Str("room", code).Msg("room back in lobby")
	return room, nil
}

// driven turns the outcome of a driver transition into (applied, error).
func (e *Engine) driven(code string, from, to schema.State, err error) (bool, error) {
	switch {
	case err == nil:
		log.Info().Str("room", code).Str("from", string(from)).Str("to", string(to)).Msg("transition")
		return true, nil
	case errors.Is(err, ErrStaleTransition), errors.Is(err, errNotDue):
		log.Debug().Str("room", code).Str("to", string(to)).Err(err).Msg("transition skipped")
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) logFailure(code string, from, to schema.State, err error) {
	event := log.Warn()
	if errors.Is(err, ErrStaleTransition) {
		event = log.Debug()
	}
	event.Str("room", code).Str("from", string(from)).Str("to", string(to)).Err(err).Msg("transition rejected")
}

func (e *Engine) newCode() string {
	e.rngMutex.Lock()
	defer e.rngMutex.Unlock()

	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[e.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}
