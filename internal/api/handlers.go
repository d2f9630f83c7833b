package api

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizrunner/internal/avatar"
	"quizrunner/internal/catalog"
	"quizrunner/internal/engine"
	"quizrunner/internal/model"
	"quizrunner/internal/store"
	"quizrunner/internal/wsconn"
)

// API wires the create/join HTTP endpoints and the websocket connection
// surfaces to the game engine, the store, and the two remaining external
// collaborators a connection touches before handing off to the engine: the
// question catalog and the avatar lookup used at player registration time.
type API struct {
	Store    store.Store
	Engine   *engine.Engine
	Catalog  catalog.Generator
	Avatar   avatar.Lookup
	Upgrader websocket.Upgrader
	Log      zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newGameCode generates a 5-character upper-case game code from a random UUID.
func newGameCode() string {
	return strings.ToUpper(uuid.NewString()[:5])
}

// CreateGame generates a quiz from user_prompt and initializes a new game
// in the WAITING state.
func (a *API) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prompt := r.URL.Query().Get("user_prompt")

	questions, err := a.Catalog.Generate(ctx, prompt)
	if err != nil || len(questions) == 0 {
		a.Log.Error().Err(err).Str("prompt", prompt).Msg("create game: loading quiz failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Error loading quiz file"})
		return
	}

	code := newGameCode()
	game := &model.Game{Code: code, Questions: questions}

	if err := a.Store.PutGame(ctx, code, game); err != nil {
		a.Log.Error().Err(err).Str("game_code", code).Msg("create game: save game failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Error loading quiz file"})
		return
	}
	if err := a.Store.PutPlayers(ctx, code, model.Players{}); err != nil {
		a.Log.Error().Err(err).Str("game_code", code).Msg("create game: save players failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Error loading quiz file"})
		return
	}
	if err := a.Store.PutState(ctx, code, model.StateWaiting); err != nil {
		a.Log.Error().Err(err).Str("game_code", code).Msg("create game: save state failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Error loading quiz file"})
		return
	}

	a.Log.Info().Str("game_code", code).Int("num_questions", len(questions)).Msg("game created")
	writeJSON(w, http.StatusOK, map[string]any{"game_code": code, "message": "Game created successfully"})
}

// JoinGame registers a player into an existing game, or reports that they
// already hold a live connection, or that they've reconnected to an idle
// record.
func (a *API) JoinGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")
	name := r.URL.Query().Get("player_name")

	game, err := a.Store.GetGame(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Game not found"})
			return
		}
		a.Log.Error().Err(err).Str("game_code", code).Msg("join game: load game failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Game not found"})
		return
	}

	players, err := a.Store.GetPlayers(ctx, code)
	if err != nil {
		a.Log.Error().Err(err).Str("game_code", code).Msg("join game: load players failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Game not found"})
		return
	}

	if existing, ok := players[name]; ok {
		if existing.WebsocketID != "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Player already in game"})
			return
		}
		a.Log.Info().Str("game_code", code).Str("player", name).Msg("player reconnected")
		writeJSON(w, http.StatusOK, map[string]any{"message": "Player reconnected"})
		return
	}

	var avatarURL *string
	if a.Avatar != nil {
		if url, err := a.Avatar.Avatar(ctx, name); err == nil {
			avatarURL = url
		} else {
			a.Log.Warn().Err(err).Str("player", name).Msg("join game: avatar lookup failed, continuing without one")
		}
	}

	player := model.NewPlayer(uuid.NewString(), len(game.Questions), avatarURL, rand.Perm)
	players[name] = player
	if err := a.Store.PutPlayers(ctx, code, players); err != nil {
		a.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("join game: save player failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Game not found"})
		return
	}

	a.Log.Info().Str("game_code", code).Str("player", name).Msg("player joined")
	writeJSON(w, http.StatusOK, map[string]any{"message": "Joined game", "game_code": code, "player_name": name})
}

// PlayerWebsocket upgrades the connection and hands it to the player
// session loop.
func (a *API) PlayerWebsocket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	name := chi.URLParam(r, "name")

	ws, err := a.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Warn().Err(err).Str("game_code", code).Str("player", name).Msg("player websocket upgrade failed")
		return
	}
	conn := wsconn.New(ws)
	defer conn.Close()

	a.Engine.RunPlayerSession(r.Context(), conn, code, name)
}

// HostWebsocket upgrades the connection and hands it to the host session
// loop.
func (a *API) HostWebsocket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	ws, err := a.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Warn().Err(err).Str("game_code", code).Msg("host websocket upgrade failed")
		return
	}
	conn := wsconn.New(ws)
	defer conn.Close()

	a.Engine.RunHostSession(r.Context(), conn, code)
}

// Health reports liveness, matching the ambient health endpoint
// (_examples/tkahng-quick-sticks/server/server.go's handleHealth) and the
// rest of the pack expose.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
