package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizrunner/internal/engine"
	"quizrunner/internal/model"
	"quizrunner/internal/store"
)

type fakeGenerator struct {
	questions []model.Question
	err       error
}

func (f fakeGenerator) Generate(_ context.Context, _ string) ([]model.Question, error) {
	return f.questions, f.err
}

func newTestAPI(t *testing.T, gen fakeGenerator) (*API, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	e := engine.New(s, nil, nil, zerolog.Nop())
	return &API{
		Store:   s,
		Engine:  e,
		Catalog: gen,
		Log:     zerolog.Nop(),
	}, s
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateGame_Success(t *testing.T) {
	gen := fakeGenerator{questions: []model.Question{
		{Question: "2+2?", Options: map[string]string{"a": "3", "b": "4"}, Answer: "b"},
	}}
	a, s := newTestAPI(t, gen)
	r := NewRouter(a, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/creategame?user_prompt=math", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	code, _ := body["game_code"].(string)
	require.Len(t, code, 5)

	state, err := s.GetState(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, model.StateWaiting, state)

	game, err := s.GetGame(context.Background(), code)
	require.NoError(t, err)
	assert.Len(t, game.Questions, 1)
}

func TestCreateGame_LoaderFailureReturns500(t *testing.T) {
	a, _ := newTestAPI(t, fakeGenerator{questions: nil})
	r := NewRouter(a, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/creategame?user_prompt=math", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Error loading quiz file", body["message"])
}

func TestJoinGame_NotFoundReturns404(t *testing.T) {
	a, _ := newTestAPI(t, fakeGenerator{})
	r := NewRouter(a, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/api/joingame/NOPE1?player_name=alice", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Game not found", decodeBody(t, rec)["message"])
}

func TestJoinGame_FreshPlayerRegisters(t *testing.T) {
	a, s := newTestAPI(t, fakeGenerator{})
	ctx := context.Background()
	require.NoError(t, s.PutGame(ctx, "ABCDE", &model.Game{Code: "ABCDE", Questions: []model.Question{{}}}))
	require.NoError(t, s.PutPlayers(ctx, "ABCDE", model.Players{}))
	require.NoError(t, s.PutState(ctx, "ABCDE", model.StateWaiting))

	r := NewRouter(a, []string{"*"})
	req := httptest.NewRequest(http.MethodPost, "/api/joingame/ABCDE?player_name=alice", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Joined game", body["message"])

	players, err := s.GetPlayers(ctx, "ABCDE")
	require.NoError(t, err)
	require.Contains(t, players, "alice")
	assert.Equal(t, -1, players["alice"].CurrentQuestionIndex)
}

func TestJoinGame_LiveMutexRejected(t *testing.T) {
	a, s := newTestAPI(t, fakeGenerator{})
	ctx := context.Background()
	require.NoError(t, s.PutGame(ctx, "FGHIJ", &model.Game{Code: "FGHIJ"}))
	require.NoError(t, s.PutPlayers(ctx, "FGHIJ", model.Players{
		"bob": {ID: "bob", WebsocketID: "live-token", CurrentQuestionIndex: -1},
	}))
	require.NoError(t, s.PutState(ctx, "FGHIJ", model.StateStarted))

	r := NewRouter(a, []string{"*"})
	req := httptest.NewRequest(http.MethodPost, "/api/joingame/FGHIJ?player_name=bob", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Player already in game", decodeBody(t, rec)["message"])
}

func TestJoinGame_IdleExistingPlayerReconnects(t *testing.T) {
	a, s := newTestAPI(t, fakeGenerator{})
	ctx := context.Background()
	require.NoError(t, s.PutGame(ctx, "KLMNO", &model.Game{Code: "KLMNO"}))
	require.NoError(t, s.PutPlayers(ctx, "KLMNO", model.Players{
		"carol": {ID: "carol", WebsocketID: "", CurrentQuestionIndex: -1, Score: 42},
	}))
	require.NoError(t, s.PutState(ctx, "KLMNO", model.StateStarted))

	r := NewRouter(a, []string{"*"})
	req := httptest.NewRequest(http.MethodPost, "/api/joingame/KLMNO?player_name=carol", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Player reconnected", decodeBody(t, rec)["message"])

	players, err := s.GetPlayers(ctx, "KLMNO")
	require.NoError(t, err)
	assert.Equal(t, 42, players["carol"].Score, "reconnect must not overwrite the existing record")
}

func TestHealth(t *testing.T) {
	a, _ := newTestAPI(t, fakeGenerator{})
	r := NewRouter(a, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
