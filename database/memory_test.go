package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitterfly/go-chaos/kategorie/database"
	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
)

func TestMemory(t *testing.T) {
	runStoreSuite(t, database.NewMemory())
}

func TestMemory_SnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemory()
	room := seedRoom(t, store, "a")
	startRound(t, store, room.Code)

	round, err := store.GetRound(ctx, room.Code, 1)
	require.NoError(t, err)
	round.Answers["a"] = schema.Answers{"Miasto": "Kalisz"}
	round.Categories[0] = "Rzeka"

	again, err := store.GetRound(ctx, room.Code, 1)
	require.NoError(t, err)
	assert.Empty(t, again.Answers)
	assert.Equal(t, "Miasto", again.Categories[0])
}

func TestMemory_Subscribe(t *testing.T) {
	store := database.NewMemory()
	room := seedRoom(t, store, "a")

	changes, cancel := store.Subscribe(room.Code)
	defer cancel()

	require.NoError(t, store.SetPlayerReady(context.Background(), room.Code, "a", true))
	select {
	case c := <-changes:
		assert.Equal(t, game.Change{Room: room.Code, Kind: game.PlayersChanged}, c)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestMemory_SubscribeKeepsLatest(t *testing.T) {
	store := database.NewMemory()
	room := seedRoom(t, store, "a")

	changes, cancel := store.Subscribe(room.Code)
	defer cancel()

	for i := 0; i < 100; i++ {
		require.NoError(t, store.SetPlayerReady(context.Background(), room.Code, "a", i%2 == 0))
	}
	startRound(t, store, room.Code)

	var last game.Change
	for len(changes) > 0 {
		last = <-changes
	}
	assert.Equal(t, game.Change{Room: room.Code, Kind: game.RoundChanged, Round: 1}, last)
}

func TestMemory_CancelClosesChannel(t *testing.T) {
	store := database.NewMemory()
	changes, cancel := store.Subscribe("ABCDEF")
	cancel()
	cancel()

	_, ok := <-changes
	assert.False(t, ok)
}
