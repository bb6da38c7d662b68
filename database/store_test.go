package database_test

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bitterfly/go-chaos/kategorie/config"
	"github.com/bitterfly/go-chaos/kategorie/database"
	"github.com/bitterfly/go-chaos/kategorie/game"
)

var (
	pgStore *database.Store
	pgInfo  config.Database
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := startPostgres(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("postgres container unavailable, skipping store tests")
		os.Exit(m.Run())
	}

	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		panic(err)
	}
	pgInfo = config.Database{
		Host:     host,
		Port:     port.Int(),
		User:     "kategorie",
		Password: "kategorie",
		Dbname:   "kategorie",
		Sslmode:  "disable",
	}

	db, err := database.Open(pgInfo)
	if err != nil {
		panic(err)
	}
	if err := database.Automigrate(db); err != nil {
		panic(err)
	}
	pgStore = database.NewStore(db)

	code := m.Run()
	container.Terminate(ctx)
	os.Exit(code)
}

// startPostgres turns the panics some Docker setups cause into errors.
func startPostgres(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("docker unavailable: %v", r)
		}
	}()
	return postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("kategorie"),
		postgres.WithUsername("kategorie"),
		postgres.WithPassword("kategorie"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
}

func requireStore(t *testing.T) *database.Store {
	t.Helper()
	if pgStore == nil {
		t.Skip("no postgres container")
	}
	return pgStore
}

func TestStore(t *testing.T) {
	runStoreSuite(t, requireStore(t))
}

func TestStore_ErrorsAreNotStoreFailures(t *testing.T) {
	store := requireStore(t)
	_, err := store.GetRoom(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	assert.NotErrorIs(t, err, game.ErrStoreUnavailable)
}

func TestListener(t *testing.T) {
	store := requireStore(t)

	listener, err := database.NewListener(pgInfo)
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Run(ctx)

	room := seedRoom(t, store, "a")
	changes, unsubscribe := listener.Subscribe(room.Code)
	defer unsubscribe()

	require.NoError(t, store.SetPlayerActive(ctx, room.Code, "a", false))
	select {
	case c := <-changes:
		assert.Equal(t, game.Change{Room: room.Code, Kind: game.PlayersChanged}, c)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestChange_Payload(t *testing.T) {
	data, err := json.Marshal(game.Change{Room: "ABC123", Kind: game.RoundChanged, Round: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"room":"ABC123","kind":"round","round":2}`, string(data))
}
