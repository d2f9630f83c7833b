package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"quizrunner/internal/leaderboard"
	"quizrunner/internal/model"
	"quizrunner/internal/store"
)

// RunHostSession serves one host connection for code. It rejects the
// connection outright if the game doesn't exist or a host is already
// attached, otherwise runs the command handler and the metrics pusher as a
// task pair until either exits, then releases the host mutex.
func (e *Engine) RunHostSession(ctx context.Context, conn Conn, code string) {
	if _, err := e.Store.GetGame(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = conn.WriteText("[GAME_NOT_FOUND]")
			return
		}
		e.Log.Error().Err(err).Str("game_code", code).Msg("host session: load game failed")
		return
	}

	token := newToken()
	if !e.hosts.acquire(code, token) {
		_ = conn.WriteText("[HOST_ALREADY_CONNECTED]")
		return
	}
	defer e.hosts.release(code, token)

	runPair(ctx, func(ctx context.Context) {
		e.handleHostCommands(ctx, conn, code)
	}, func(ctx context.Context) {
		e.pushHostMetrics(ctx, conn, code)
	})
}

func (e *Engine) handleHostCommands(ctx context.Context, conn Conn, code string) {
	state, err := e.Store.GetState(ctx, code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: load state failed")
		return
	}
	if state == model.StateWaiting {
		_ = conn.WriteText("[WAITING]")
	}

	for {
		raw, err := conn.ReadText(ctx)
		if err != nil {
			return
		}
		command := strings.ToLower(strings.TrimSpace(raw))

		state, err := e.Store.GetState(ctx, code)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: load state failed")
			return
		}

		switch {
		case command == "start" && state == model.StateWaiting:
			game, err := e.Store.GetGame(ctx, code)
			if err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: load game for start failed")
				return
			}
			now := time.Now()
			game.StartTime = &now
			if err := e.Store.PutGame(ctx, code, game); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: save game failed")
				return
			}
			if err := e.Store.PutState(ctx, code, model.StateStarted); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: save state failed")
				return
			}
			_ = conn.WriteText("[START]")

		case command == "pause" && state == model.StateStarted:
			if err := e.Store.PutState(ctx, code, model.StatePaused); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: save state failed")
				return
			}
			_ = conn.WriteText("[PAUSE]")

		case command == "resume" && state == model.StatePaused:
			if err := e.Store.PutState(ctx, code, model.StateStarted); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: save state failed")
				return
			}
			_ = conn.WriteText("[RESUME]")

		case command == "end":
			if err := e.Store.PutState(ctx, code, model.StateEnded); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host commands: save state failed")
				return
			}
			_ = conn.WriteText("[END]")
			return

		default:
			_ = conn.WriteText("[INVALID_COMMAND]")
		}
	}
}

type metricsFrame struct {
	Metrics any `json:"metrics"`
}

type fullMetrics struct {
	GameData      model.Game                           `json:"game_data"`
	PlayerMetrics map[string]leaderboard.PlayerMetrics `json:"player_metrics"`
}

func (e *Engine) pushHostMetrics(ctx context.Context, conn Conn, code string) {
	players, err := e.Store.GetPlayers(ctx, code)
	if err != nil {
		e.Log.Error().Err(err).Str("game_code", code).Msg("host metrics: load players failed")
		return
	}
	if err := sendJSON(conn, metricsFrame{Metrics: leaderboard.Aggregate(players)}); err != nil {
		return
	}

	numPlayers := len(players)

	ticker := time.NewTicker(MetricsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := e.Store.GetState(ctx, code)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host metrics: load state failed")
				return
			}
			players, err := e.Store.GetPlayers(ctx, code)
			if err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Msg("host metrics: load players failed")
				return
			}
			numCurrent := len(players)

			if state == model.StateStarted || numCurrent != numPlayers {
				game, err := e.Store.GetGame(ctx, code)
				if err != nil {
					e.Log.Error().Err(err).Str("game_code", code).Msg("host metrics: load game failed")
					return
				}
				full := fullMetrics{
					GameData:      game.WithoutQuestions(),
					PlayerMetrics: leaderboard.Aggregate(players),
				}
				if err := sendJSON(conn, metricsFrame{Metrics: full}); err != nil {
					return
				}
			}

			numPlayers = numCurrent
		}
	}
}

func sendJSON(conn Conn, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteText(string(raw))
}
