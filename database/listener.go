package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/bitterfly/go-chaos/kategorie/config"
	"github.com/bitterfly/go-chaos/kategorie/game"
)

const pingInterval = 90 * time.Second

// Listener is the change feed of a Store. It receives the notifications
// written by any server instance, so watchers see every writer's changes.
type Listener struct {
	*fanout
	listener *pq.Listener
}

func NewListener(info config.Database) (*Listener, error) {
	report := func(event pq.ListenerEventType, err error) {
		if err != nil {
			log.Error().Err(err).Int("event", int(event)).Msg("change listener")
		}
	}
	l := pq.NewListener(info.String(), 10*time.Second, time.Minute, report)
	if err := l.Listen(Channel); err != nil {
		l.Close()
		return nil, newOpenError(err)
	}
	return &Listener{fanout: newFanout(), listener: l}, nil
}

// Run dispatches notifications until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			if n == nil {
				// Reconnected; anything sent meanwhile is lost.
				continue
			}
			var change game.Change
			if err := json.Unmarshal([]byte(n.Extra), &change); err != nil {
				log.Warn().Str("payload", n.Extra).Err(err).Msg("bad change notification")
				continue
			}
			l.publish(change)
		case <-time.After(pingInterval):
			go func() {
				if err := l.listener.Ping(); err != nil {
					log.Warn().Err(err).Msg("change listener ping")
				}
			}()
		}
	}
}

func (l *Listener) Close() error {
	return l.listener.Close()
}
