package database_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
)

var codes atomic.Int64

func newCode() string {
	return fmt.Sprintf("T%05d", codes.Add(1))
}

func seedRoom(t *testing.T, store game.Store, players ...string) schema.Room {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	room := schema.Room{
		Code:      newCode(),
		HostID:    players[0],
		State:     schema.StateLobby,
		Settings:  schema.DefaultSettings(),
		CreatedAt: now,
	}
	host := schema.Player{ID: players[0], Name: players[0], IsHost: true, IsActive: true, JoinedAt: now}
	require.NoError(t, store.CreateRoom(ctx, room, host))

	for i, id := range players[1:] {
		p := schema.Player{ID: id, Name: id, IsActive: true, JoinedAt: now.Add(time.Duration(i+1) * time.Second)}
		require.NoError(t, store.AddPlayer(ctx, room.Code, p))
	}
	return room
}

func startRound(t *testing.T, store game.Store, code string) schema.Room {
	t.Helper()
	room, err := store.Transition(context.Background(), code, game.Transition{
		From: schema.StateLobby,
		To:   schema.StatePlaying,
		NewRound: func(room schema.Room) (schema.Round, error) {
			return schema.Round{
				Letter:     "K",
				Categories: []string{"Miasto"},
				Answers:    schema.AnswerSheet{},
				Votes:      schema.Ballot{},
				Scores:     schema.Scores{},
			}, nil
		},
	})
	require.NoError(t, err)
	return room
}

// runStoreSuite checks the guarantees the engine relies on. It runs against
// every Store implementation.
func runStoreSuite(t *testing.T, store game.Store) {
	ctx := context.Background()

	t.Run("CreateRoom_Duplicate", func(t *testing.T) {
		room := seedRoom(t, store, "a")
		err := store.CreateRoom(ctx, room, schema.Player{ID: "b", Name: "b"})
		assert.ErrorIs(t, err, game.ErrRoomExists)
	})

	t.Run("GetRoom_NotFound", func(t *testing.T) {
		_, err := store.GetRoom(ctx, "NOPE00")
		assert.ErrorIs(t, err, game.ErrRoomNotFound)
	})

	t.Run("AddPlayer_Full", func(t *testing.T) {
		room := seedRoom(t, store, "a")
		for i := 1; i < room.Settings.MaxPlayers; i++ {
			require.NoError(t, store.AddPlayer(ctx, room.Code, schema.Player{ID: fmt.Sprintf("p%d", i), Name: "p", JoinedAt: time.Now()}))
		}
		err := store.AddPlayer(ctx, room.Code, schema.Player{ID: "late", Name: "late", JoinedAt: time.Now()})
		assert.ErrorIs(t, err, game.ErrRoomFull)

		players, err := store.ListPlayers(ctx, room.Code)
		require.NoError(t, err)
		assert.Len(t, players, room.Settings.MaxPlayers)
		assert.Equal(t, "a", players[0].ID)
	})

	t.Run("SetPlayerFlags", func(t *testing.T) {
		room := seedRoom(t, store, "a", "b")
		require.NoError(t, store.SetPlayerReady(ctx, room.Code, "b", true))
		require.NoError(t, store.SetPlayerActive(ctx, room.Code, "b", false))

		p, err := store.GetPlayer(ctx, room.Code, "b")
		require.NoError(t, err)
		assert.True(t, p.IsReady)
		assert.False(t, p.IsActive)

		assert.ErrorIs(t, store.SetPlayerReady(ctx, room.Code, "ghost", true), game.ErrPlayerNotFound)
	})

	t.Run("Transition_NewRound", func(t *testing.T) {
		room := seedRoom(t, store, "a")
		next := startRound(t, store, room.Code)
		assert.Equal(t, schema.StatePlaying, next.State)
		assert.Equal(t, 1, next.CurrentRoundIndex)

		round, err := store.GetRound(ctx, room.Code, 1)
		require.NoError(t, err)
		assert.Equal(t, "round_1", round.ID())
		assert.Equal(t, "K", round.Letter)

		codes, err := store.ListRoomsInState(ctx, schema.StatePlaying)
		require.NoError(t, err)
		assert.Contains(t, codes, room.Code)
	})

	t.Run("Transition_Stale", func(t *testing.T) {
		room := seedRoom(t, store, "a")
		startRound(t, store, room.Code)

		_, err := store.Transition(ctx, room.Code, game.Transition{From: schema.StateLobby, To: schema.StatePlaying})
		assert.ErrorIs(t, err, game.ErrStaleTransition)
	})

	t.Run("Transition_GuardFailureWritesNothing", func(t *testing.T) {
		room := seedRoom(t, store, "a")
		startRound(t, store, room.Code)

		_, err := store.Transition(ctx, room.Code, game.Transition{
			From:  schema.StatePlaying,
			To:    schema.StateVoting,
			Guard: func(schema.Room, []schema.Player, *schema.Round) error { return game.ErrNotHost },
			Update: func(_ schema.Room, round *schema.Round, _ []schema.Player) error {
				round.Votes = schema.Ballot{"Miasto": {}}
				return nil
			},
		})
		assert.ErrorIs(t, err, game.ErrNotHost)

		got, err := store.GetRoom(ctx, room.Code)
		require.NoError(t, err)
		assert.Equal(t, schema.StatePlaying, got.State)
	})

	t.Run("UpdateRound_WrongPhase", func(t *testing.T) {
		room := seedRoom(t, store, "a")
		startRound(t, store, room.Code)

		_, err := store.UpdateRound(ctx, room.Code, 1, schema.StateVoting, func(*schema.Round, []schema.Player) error { return nil })
		assert.ErrorIs(t, err, game.ErrWrongPhase)
	})

	t.Run("AddScores_ConcurrentTransitionsApplyOnce", func(t *testing.T) {
		room := seedRoom(t, store, "a", "b")
		startRound(t, store, room.Code)
		_, err := store.UpdateRound(ctx, room.Code, 1, schema.StatePlaying, func(round *schema.Round, _ []schema.Player) error {
			round.Answers["a"] = schema.Answers{"Miasto": "Kraków"}
			return nil
		})
		require.NoError(t, err)
		_, err = store.Transition(ctx, room.Code, game.Transition{From: schema.StatePlaying, To: schema.StateVoting})
		require.NoError(t, err)

		var wg sync.WaitGroup
		var applied atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Transition(ctx, room.Code, game.Transition{
					From: schema.StateVoting,
					To:   schema.StateSummary,
					Update: func(_ schema.Room, round *schema.Round, _ []schema.Player) error {
						round.Scores = schema.Scores{"a": 15, "b": 0}
						return nil
					},
					AddScores: true,
				})
				if err == nil {
					applied.Add(1)
					return
				}
				assert.ErrorIs(t, err, game.ErrStaleTransition)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, applied.Load())

		p, err := store.GetPlayer(ctx, room.Code, "a")
		require.NoError(t, err)
		assert.Equal(t, 15, p.Score)

		round, err := store.GetRound(ctx, room.Code, 1)
		require.NoError(t, err)
		assert.Equal(t, schema.Answers{"Miasto": "Kraków"}, round.Answers["a"])
		assert.Equal(t, 15, round.Scores["a"])
	})
}
