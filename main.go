package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/bitterfly/go-chaos/kategorie/config"
	"github.com/bitterfly/go-chaos/kategorie/database"
	"github.com/bitterfly/go-chaos/kategorie/dictionary"
	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/logger"
	"github.com/bitterfly/go-chaos/kategorie/server"
)

func main() {
	path := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		panic(err)
	}
	logger.Setup(cfg.LogLevel, cfg.PrettyLogs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, feed := openStore(ctx, cfg)

	var oracle game.Oracle
	if cfg.DictionaryPath != "" {
		dict, err := dictionary.Load(cfg.DictionaryPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DictionaryPath).Msg("loading dictionary")
		}
		log.Info().Int("words", dict.Len()).Msg("loaded dictionary")
		oracle = dict
	}

	engine := game.New(store, oracle, game.Config{LeadTime: cfg.LeadTime()})
	go game.NewDriver(engine, store, cfg.DriverInterval()).Run(ctx)

	srv := server.New(
		engine,
		game.NewWatcher(store, feed),
		server.NewToken(cfg.TokenSecret, cfg.TokenDuration()),
		cfg.AllowedOrigins)
	if err := srv.Connect(ctx, cfg.Address); err != nil {
		log.Fatal().Err(err).Msg("serving")
	}
}

// openStore returns the in-process store when no database is configured and
// PostgreSQL otherwise.
func openStore(ctx context.Context, cfg config.Config) (game.Store, game.Feed) {
	if cfg.UsesMemoryStore() {
		log.Warn().Msg("no database configured, rooms are kept in memory")
		memory := database.NewMemory()
		return memory, memory
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	log.Info().Msg("connected to database")

	if err := database.Automigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating database")
	}
	log.Info().Msg("migrated the database")

	listener, err := database.NewListener(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("listening for changes")
	}
	go func() {
		listener.Run(ctx)
		listener.Close()
	}()
	return database.NewStore(db), listener
}
