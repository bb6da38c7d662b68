package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
	"github.com/bitterfly/go-chaos/kategorie/server/message"
)

const writeWait = 10 * time.Second

// handleWatch streams room, player and round snapshots over a websocket. The
// connection doubles as the presence signal: the player is active while any of
// their streams is open, and may report going to the background with an
// "active" message.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	payload, err := s.Token.CheckTokenVars(mux.Vars(r))
	if err != nil {
		log.Debug().Err(err).Msg("[handleWatch] could not validate token")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	ws, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[handleWatch] could not upgrade to ws")
		return
	}
	defer ws.Close()

	code, playerID := payload.RoomCode, payload.PlayerID
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mark := func(active bool) { s.setActive(code, playerID, active) }
	s.presence.connect(code, playerID, mark)
	defer s.presence.disconnect(code, playerID, mark)

	go s.listen(ws, code, playerID, cancel)

	if err := s.stream(ctx, ws, code); err != nil {
		log.Debug().Str("room", code).Str("player", playerID).Err(err).Msg("[handleWatch] stream ended")
	}
}

func (s *Server) setActive(code, playerID string, active bool) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := s.Engine.SetActive(ctx, code, playerID, active); err != nil {
		log.Warn().Str("room", code).Str("player", playerID).Err(err).Msg("updating presence")
	}
}

// listen reads client messages until the connection closes.
func (s *Server) listen(ws *websocket.Conn, code, playerID string, done context.CancelFunc) {
	defer done()
	for {
		var msg message.Message
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case message.Active:
			active, ok := msg.Msg.(bool)
			if !ok {
				log.Debug().Str("player", playerID).Msg("active message without a bool")
				continue
			}
			s.setActive(code, playerID, active)
		default:
			log.Debug().Str("player", playerID).Str("type", string(msg.Type)).Msg("can't decode message")
		}
	}
}

func (s *Server) stream(ctx context.Context, ws *websocket.Conn, code string) error {
	rooms, err := s.Watcher.WatchRoom(ctx, code)
	if err != nil {
		send(ws, message.Error, err.Error())
		return err
	}
	players, err := s.Watcher.WatchPlayers(ctx, code)
	if err != nil {
		return err
	}

	var rounds <-chan schema.Round
	cancelRound := func() {}
	defer func() { cancelRound() }()
	watching := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case room, ok := <-rooms:
			if !ok {
				return nil
			}
			if room.CurrentRoundIndex > 0 && room.CurrentRoundIndex != watching {
				cancelRound()
				var roundCtx context.Context
				roundCtx, cancelRound = context.WithCancel(ctx)
				rounds, err = s.Watcher.WatchRound(roundCtx, code, room.CurrentRoundIndex)
				if err != nil {
					return err
				}
				watching = room.CurrentRoundIndex
			}
			if err := send(ws, message.Room, room); err != nil {
				return err
			}
		case ps, ok := <-players:
			if !ok {
				return nil
			}
			if err := send(ws, message.Players, game.Standings(ps)); err != nil {
				return err
			}
		case round, ok := <-rounds:
			if !ok {
				rounds = nil
				continue
			}
			if err := send(ws, message.Round, round); err != nil {
				return err
			}
		}
	}
}

func send(ws *websocket.Conn, t message.Type, msg interface{}) error {
	data, err := json.Marshal(&message.Message{Type: t, Msg: msg})
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}
