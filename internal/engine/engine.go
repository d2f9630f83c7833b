// Package engine implements the game session engine: the per-game state
// machine, the host command/metrics connection, and the per-player
// question/answer loop. It is grounded on
// original_source/backend/helper/helper.py's manage_host_session and
// manage_game_session, reworked from asyncio coroutines into goroutine task
// pairs (see taskpair.go) joined over a store.Store rather than in-process
// shared dicts.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizrunner/internal/avatar"
	"quizrunner/internal/hint"
	"quizrunner/internal/model"
	"quizrunner/internal/store"
)

const (
	// TimeLimit is the per-question answer window.
	TimeLimit = 30 * time.Second
	// InterruptPollInterval is how often the interrupt task polls game state.
	InterruptPollInterval = 500 * time.Millisecond
	// MetricsPushInterval is how often the host metrics task pushes a snapshot.
	MetricsPushInterval = 1 * time.Second
	// DrainTimeout bounds how long the question task spends discarding
	// pre-start noise before proceeding.
	DrainTimeout = 100 * time.Millisecond
)

// Conn is the minimal duplex text-frame surface the engine needs from a
// connection; *wsconn.Conn satisfies it. Defined here (rather than
// depending on wsconn directly) so tests can supply an in-memory fake.
type Conn interface {
	WriteText(text string) error
	ReadText(ctx context.Context) (string, error)
}

// HintSource is the per-game hint lookup the question task calls on a
// first wrong attempt; *hint.CachedProvider satisfies it. wrongAnswer is
// the chosen option's key (used for cache keying), wrongAnswerText is the
// option's text (sent to the provider).
type HintSource interface {
	HintForQuestion(ctx context.Context, questionIndex int, question, correctAnswer, wrongAnswer, wrongAnswerText string) (string, error)
}

// Engine holds the collaborators every session needs: the store, a factory
// for per-game hint sources, the avatar lookup used at registration time,
// and a logger. One Engine instance is shared by every connection the
// process serves.
type Engine struct {
	Store      store.Store
	HintSource func(gameCode string) HintSource
	Avatar     avatar.Lookup
	Log        zerolog.Logger

	hosts *hostMutex
}

// New builds an Engine. hintFactory may be nil in tests that never exercise
// the hint path.
func New(s store.Store, hintFactory func(string) HintSource, avatarLookup avatar.Lookup, log zerolog.Logger) *Engine {
	return &Engine{
		Store:      s,
		HintSource: hintFactory,
		Avatar:     avatarLookup,
		Log:        log,
		hosts:      newHostMutex(),
	}
}

// NewHintSource is the production default: a hint.CachedProvider wrapping
// inner for gameCode.
func NewHintSource(inner hint.Provider, s store.Store) func(string) HintSource {
	return func(gameCode string) HintSource {
		return hint.NewCachedProvider(inner, s, gameCode)
	}
}

func newToken() string {
	return uuid.NewString()
}
