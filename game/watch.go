package game

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Watcher turns store change notifications into snapshot streams. Every
// stream starts with the current snapshot and closes when ctx is done.
type Watcher struct {
	store Store
	feed  Feed
}

func NewWatcher(store Store, feed Feed) *Watcher {
	return &Watcher{store: store, feed: feed}
}

func (w *Watcher) WatchRoom(ctx context.Context, code string) (<-chan schema.Room, error) {
	return watch(ctx, w.feed, code,
		func(c Change) bool { return c.Kind == RoomChanged },
		func(ctx context.Context) (schema.Room, error) { return w.store.GetRoom(ctx, code) })
}

func (w *Watcher) WatchPlayers(ctx context.Context, code string) (<-chan []schema.Player, error) {
	return watch(ctx, w.feed, code,
		func(c Change) bool { return c.Kind == PlayersChanged },
		func(ctx context.Context) ([]schema.Player, error) { return w.store.ListPlayers(ctx, code) })
}

func (w *Watcher) WatchRound(ctx context.Context, code string, number int) (<-chan schema.Round, error) {
	return watch(ctx, w.feed, code,
		func(c Change) bool { return c.Kind == RoundChanged && c.Round == number },
		func(ctx context.Context) (schema.Round, error) { return w.store.GetRound(ctx, code, number) })
}

func watch[T any](
	ctx context.Context,
	feed Feed,
	code string,
	match func(Change) bool,
	read func(context.Context) (T, error),
) (<-chan T, error) {
	changes, cancel := feed.Subscribe(code)
	initial, err := read(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan T, 1)
	out <- initial
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if !match(c) {
					continue
				}
				snapshot, err := read(ctx)
				if err != nil {
					log.Warn().Str("room", code).Str("kind", string(c.Kind)).Err(err).Msg("reading snapshot")
					continue
				}
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
