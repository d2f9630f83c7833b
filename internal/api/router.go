// Package api wires the HTTP create/join endpoints and the player/host
// websocket connection surfaces to the game engine, using
// github.com/go-chi/chi/v5 for path-parameterized routing, grounded on
// _examples/hmcalister-TwentyQuestions/main.go's router setup.
package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter builds the full route tree. allowedOrigins configures both the
// CORS middleware and (by the caller, via a.Upgrader) the websocket origin
// check.
func NewRouter(a *API, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(recoverer(a.Log))
	r.Use(requestLogger(a.Log))
	r.Use(cors(allowedOrigins))

	r.Get("/api/health", a.Health)
	r.Post("/api/creategame", a.CreateGame)
	r.Post("/api/joingame/{code}", a.JoinGame)

	r.Get("/ws/game/{code}/{name}", a.PlayerWebsocket)
	r.Get("/ws/host/{code}", a.HostWebsocket)

	return r
}
