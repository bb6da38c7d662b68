package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
	"github.com/bitterfly/go-chaos/kategorie/server/containers"
	"github.com/bitterfly/go-chaos/kategorie/utils"
)

var errNotReady = errors.New("players-not-ready")

type contextKey string

const (
	playerKey contextKey = "player"
	roomKey   contextKey = "room"
)

type Server struct {
	Mux        *mux.Router
	Engine     *game.Engine
	Watcher    *game.Watcher
	Token      Token
	Upgrader   websocket.Upgrader
	BcryptCost int

	origins  []string
	limiter  *limiter
	presence *presence
}

func New(engine *game.Engine, watcher *game.Watcher, token Token, origins []string) *Server {
	s := &Server{
		Mux:        mux.NewRouter(),
		Engine:     engine,
		Watcher:    watcher,
		Token:      token,
		BcryptCost: bcrypt.DefaultCost,
		origins:    origins,
		limiter:    newLimiter(rate.Limit(10), 20),
		presence:   newPresence(),
	}
	s.Upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	authRouter := s.Mux.PathPrefix("/api/rooms/{code}").Subrouter()
	authRouter.Use(s.authHandler, s.limitHandler)
	authRouter.HandleFunc("", s.handleSnapshot).Methods("GET")
	authRouter.HandleFunc("/ready", s.handleReady).Methods("POST")
	authRouter.HandleFunc("/active", s.handleActive).Methods("POST")
	authRouter.HandleFunc("/start", s.handleStart).Methods("POST")
	authRouter.HandleFunc("/answers", s.handleAnswers).Methods("POST")
	authRouter.HandleFunc("/votes", s.handleVote).Methods("POST")
	authRouter.HandleFunc("/advance", s.handleAdvance).Methods("POST")
	authRouter.HandleFunc("/next", s.handleNext).Methods("POST")
	authRouter.HandleFunc("/finish", s.handleFinish).Methods("POST")
	authRouter.HandleFunc("/lobby", s.handleLobby).Methods("POST")
	authRouter.HandleFunc("/rounds/{number}", s.handleRound).Methods("GET")

	s.Mux.HandleFunc("/api/rooms", s.handleCreate).Methods("POST")
	s.Mux.HandleFunc("/api/join/{code}", s.handleJoin).Methods("POST")
	s.Mux.HandleFunc("/api/rejoin/{code}", s.handleRejoin).Methods("POST")
	s.Mux.HandleFunc("/api/watch/{sessionToken}", s.handleWatch)
	s.Mux.Use(mux.CORSMethodMiddleware(s.Mux))
}

// Handler wraps the router with CORS and access logging.
func (s *Server) Handler() http.Handler {
	allowedOrigins := handlers.AllowedOrigins(s.origins)
	allowedMethods := handlers.AllowedMethods([]string{"POST", "OPTIONS", "GET"})
	allowedHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	return handlers.LoggingHandler(os.Stderr, handlers.CORS(
		allowedOrigins,
		allowedMethods,
		allowedHeaders)(s.Mux))
}

// Connect serves until ctx is done, then shuts down gracefully.
func (s *Server) Connect(ctx context.Context, address string) error {
	server := &http.Server{Addr: address, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("address", address).Msg("starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error connecting to server %s: %w", address, err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) authHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := s.Token.VerifyToken(ExtractToken(r))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(err.Error()))
			return
		}

		code, err := utils.ParseCode(mux.Vars(r))
		if err != nil || code != payload.RoomCode {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("Session is for another room."))
			return
		}

		ctx := context.WithValue(r.Context(), playerKey, payload.PlayerID)
		ctx = context.WithValue(ctx, roomKey, payload.RoomCode)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) limitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(caller(r)) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Slow down."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func caller(r *http.Request) string {
	id, _ := r.Context().Value(playerKey).(string)
	return id
}

func room(r *http.Request) string {
	code, _ := r.Context().Value(roomKey).(string)
	return code
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, game.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, game.ErrRoomNotFound),
		errors.Is(err, game.ErrPlayerNotFound),
		errors.Is(err, game.ErrRoundNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotHost),
		errors.Is(err, game.ErrIneligibleVoter):
		return http.StatusForbidden
	case errors.Is(err, game.ErrUnknownBallotEntry),
		errors.Is(err, game.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrRoomExists),
		errors.Is(err, game.ErrDuplicateSubmission),
		errors.Is(err, game.ErrStaleTransition),
		errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, errNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, handler string, err error) {
	status := errorStatus(err)
	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Str("handler", handler).Int("status", status).Err(err).Msg("request failed")

	w.WriteHeader(status)
	w.Write([]byte(err.Error()))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) newPlayer(name string) (schema.Player, string, error) {
	secret := RandomSecret(16)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.BcryptCost)
	if err != nil {
		return schema.Player{}, "", err
	}
	return schema.Player{ID: uuid.NewString(), Name: name, SecretHash: hash}, secret, nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request, handler, code, playerID, secret string) {
	token, err := s.Token.CreateToken(code, playerID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Could not create authentication token."))
		return
	}
	player, err := s.Engine.Player(r.Context(), code, playerID)
	if err != nil {
		writeError(w, handler, err)
		return
	}
	room, err := s.Engine.Room(r.Context(), code)
	if err != nil {
		writeError(w, handler, err)
		return
	}
	writeJSON(w, containers.Session{SessionToken: token, Secret: secret, Player: player, Room: room})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	host, err := containers.ParseHost(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(fmt.Sprintf("Bad host json: %s", err)))
		return
	}

	player, secret, err := s.newPlayer(host.Name)
	if err != nil {
		writeError(w, "handleCreate", err)
		return
	}
	room, err := s.Engine.CreateRoom(r.Context(), host.RoomSettings(), player)
	if err != nil {
		writeError(w, "handleCreate", err)
		return
	}
	s.session(w, r, "handleCreate", room.Code, player.ID, secret)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	code, err := utils.ParseCode(mux.Vars(r))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return
	}
	join, err := containers.ParseJoin(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(fmt.Sprintf("Bad join json: %s", err)))
		return
	}

	player, secret, err := s.newPlayer(join.Name)
	if err != nil {
		writeError(w, "handleJoin", err)
		return
	}
	if _, err := s.Engine.JoinRoom(r.Context(), code, player); err != nil {
		writeError(w, "handleJoin", err)
		return
	}
	s.session(w, r, "handleJoin", code, player.ID, secret)
}

func (s *Server) handleRejoin(w http.ResponseWriter, r *http.Request) {
	code, err := utils.ParseCode(mux.Vars(r))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return
	}
	rejoin, err := containers.ParseRejoin(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Bad rejoin json."))
		return
	}

	player, err := s.Engine.Player(r.Context(), code, rejoin.PlayerID)
	if errors.Is(err, game.ErrPlayerNotFound) || errors.Is(err, game.ErrRoomNotFound) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Wrong player or secret."))
		return
	}
	if err != nil {
		writeError(w, "handleRejoin", err)
		return
	}
	if err := bcrypt.CompareHashAndPassword(player.SecretHash, []byte(rejoin.Secret)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Wrong player or secret."))
		return
	}
	s.session(w, r, "handleRejoin", code, player.ID, "")
}

func (s *Server) snapshot(ctx context.Context, code string) (containers.Snapshot, error) {
	room, err := s.Engine.Room(ctx, code)
	if err != nil {
		return containers.Snapshot{}, err
	}
	players, err := s.Engine.Players(ctx, code)
	if err != nil {
		return containers.Snapshot{}, err
	}
	snapshot := containers.Snapshot{Room: room, Players: game.Standings(players)}
	if room.CurrentRoundIndex == 0 {
		return snapshot, nil
	}

	round, err := s.Engine.Round(ctx, code, room.CurrentRoundIndex)
	if err != nil {
		return containers.Snapshot{}, err
	}
	snapshot.Round = &round
	if room.State == schema.StateSummary || room.State == schema.StateFinished {
		summary := game.Summarize(round.Scores)
		snapshot.Summary = &summary
	}
	return snapshot, nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.snapshot(r.Context(), room(r))
	if err != nil {
		writeError(w, "handleSnapshot", err)
		return
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	flag, err := containers.ParseFlag(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Bad flag json."))
		return
	}
	if err := s.Engine.SetReady(r.Context(), room(r), caller(r), flag.Value); err != nil {
		writeError(w, "handleReady", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	flag, err := containers.ParseFlag(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Bad flag json."))
		return
	}
	if err := s.Engine.SetActive(r.Context(), room(r), caller(r), flag.Value); err != nil {
		writeError(w, "handleActive", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleStart starts the first round once every active player is ready, or
// the next round from the summary.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	code := room(r)
	current, err := s.Engine.Room(r.Context(), code)
	if err != nil {
		writeError(w, "handleStart", err)
		return
	}
	if current.State == schema.StateLobby {
		players, err := s.Engine.Players(r.Context(), code)
		if err != nil {
			writeError(w, "handleStart", err)
			return
		}
		if !game.AllReady(players) {
			writeError(w, "handleStart", errNotReady)
			return
		}
	}

	round, err := s.Engine.StartRound(r.Context(), code, caller(r))
	if err != nil {
		writeError(w, "handleStart", err)
		return
	}
	writeJSON(w, round)
}

func (s *Server) handleAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := containers.ParseAnswers(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Bad answers json."))
		return
	}
	if err := s.Engine.SubmitAnswers(r.Context(), room(r), caller(r), answers.Answers); err != nil {
		writeError(w, "handleAnswers", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	vote, err := containers.ParseVote(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(fmt.Sprintf("Bad vote json: %s", err)))
		return
	}
	if err := s.Engine.CastVote(r.Context(), room(r), caller(r), vote.Category, vote.Word, vote.Accept); err != nil {
		writeError(w, "handleVote", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleAdvance lets any player drive an overdue transition.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	advanced, err := s.Engine.Advance(r.Context(), room(r))
	if err != nil {
		writeError(w, "handleAdvance", err)
		return
	}
	writeJSON(w, map[string]bool{"advanced": advanced})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	round, err := s.Engine.NextRound(r.Context(), room(r), caller(r))
	if err != nil {
		writeError(w, "handleNext", err)
		return
	}
	writeJSON(w, round)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	result, err := s.Engine.Finish(r.Context(), room(r), caller(r))
	if err != nil {
		writeError(w, "handleFinish", err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	result, err := s.Engine.ReturnToLobby(r.Context(), room(r), caller(r))
	if err != nil {
		writeError(w, "handleLobby", err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	number, err := utils.ParseInt(mux.Vars(r), "number")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return
	}
	round, err := s.Engine.Round(r.Context(), room(r), number)
	if err != nil {
		writeError(w, "handleRound", err)
		return
	}
	writeJSON(w, round)
}
