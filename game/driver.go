package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Driver closes overdue rounds and finished votes even when no client is
// around to do it. It competes with clients through the same guarded
// transitions.
type Driver struct {
	engine   *Engine
	store    Store
	interval time.Duration
}

func NewDriver(engine *Engine, store Store, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	return &Driver{engine: engine, store: store, interval: interval}
}

// Run sweeps until ctx is done.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep(ctx)
		}
	}
}

// Sweep advances every room currently playing or voting and returns how many
// transitions it made.
func (d *Driver) Sweep(ctx context.Context) int {
	codes, err := d.store.ListRoomsInState(ctx, schema.StatePlaying, schema.StateVoting)
	if err != nil {
		log.Error().Err(err).Msg("listing active rooms")
		return 0
	}

	advanced := 0
	for _, code := range codes {
		ok, err := d.engine.Advance(ctx, code)
		if err != nil {
			log.Error().Str("room", code).Err(err).Msg("advancing room")
			continue
		}
		if ok {
			advanced++
		}
	}
	return advanced
}
