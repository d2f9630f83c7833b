package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizrunner/internal/leaderboard"
	"quizrunner/internal/model"
	"quizrunner/internal/scoring"
	"quizrunner/internal/store"
)

// RunPlayerSession serves one player's connection for code: it validates
// the player's presence, acquires the durable player mutex, then runs the
// interrupt task and the question task as a task pair until either exits,
// releasing the mutex on the way out if this session still owns it.
func (e *Engine) RunPlayerSession(ctx context.Context, conn Conn, code, name string) {
	if _, err := e.Store.GetGame(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = conn.WriteText("[GAME_NOT_FOUND]")
			return
		}
		e.Log.Error().Err(err).Str("game_code", code).Msg("player session: load game failed")
		return
	}

	players, err := e.Store.GetPlayers(ctx, code)
	if err != nil {
		e.Log.Error().Err(err).Str("game_code", code).Msg("player session: load players failed")
		return
	}
	if _, ok := players[name]; !ok {
		_ = conn.WriteText("[USER_NOT_IN_GAME]")
		return
	}

	token := newToken()
	players[name].WebsocketID = token
	if err := e.Store.PutPlayers(ctx, code, players); err != nil {
		e.Log.Error().Err(err).Str("game_code", code).Msg("player session: save mutex token failed")
		return
	}
	defer e.releasePlayerMutex(ctx, code, name, token)

	runPair(ctx, func(ctx context.Context) {
		e.handlePlayerInterrupts(ctx, conn, code, name)
	}, func(ctx context.Context) {
		e.handlePlayerQuestions(ctx, conn, code, name)
	})
}

func (e *Engine) releasePlayerMutex(ctx context.Context, code, name, token string) {
	players, err := e.Store.GetPlayers(ctx, code)
	if err != nil {
		return
	}
	p, ok := players[name]
	if !ok || p.WebsocketID != token {
		return
	}
	p.WebsocketID = ""
	_ = e.Store.PutPlayers(ctx, code, players)
}

// handlePlayerInterrupts polls game state roughly every
// InterruptPollInterval, emitting [PAUSE]/[RESUME] around a paused window
// and [END] on game end.
func (e *Engine) handlePlayerInterrupts(ctx context.Context, conn Conn, code, name string) {
	for {
		if ctx.Err() != nil {
			return
		}

		state, err := e.Store.GetState(ctx, code)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("interrupt task: load state failed")
			return
		}

		switch state {
		case model.StatePaused:
			_ = conn.WriteText("[PAUSE]")
			for {
				if sleepCtx(ctx, InterruptPollInterval) {
					return
				}
				state, err = e.Store.GetState(ctx, code)
				if err != nil && !errors.Is(err, store.ErrNotFound) {
					e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("interrupt task: load state failed")
					return
				}
				if state != model.StatePaused {
					break
				}
			}
			_ = conn.WriteText("[RESUME]")
		case model.StateEnded:
			_ = conn.WriteText("[END]")
			return
		}

		if sleepCtx(ctx, InterruptPollInterval) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}

// handlePlayerQuestions is the main question/answer loop. ranOutOfTime and
// waitingAfterQuestion, along with the last-shown question, persist across
// loop iterations the same way the corresponding locals do in
// helper.py's handle_questions closure.
func (e *Engine) handlePlayerQuestions(ctx context.Context, conn Conn, code, name string) {
	var (
		ranOutOfTime         bool
		waitingAfterQuestion bool
		lastQuestion         model.Question
		lastCorrectAnswer    string
	)

	for {
		if ctx.Err() != nil {
			return
		}

		game, err := e.Store.GetGame(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				_ = conn.WriteText("[GAME_NOT_FOUND]")
				return
			}
			e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: load game failed")
			return
		}

		players, err := e.Store.GetPlayers(ctx, code)
		if err != nil {
			e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: load players failed")
			return
		}
		player, ok := players[name]
		if !ok {
			_ = conn.WriteText("[USER_NOT_IN_GAME]")
			return
		}

		if err := e.drainInbound(ctx, conn); err != nil {
			return
		}

		if ranOutOfTime {
			answerText := fmt.Sprintf("%s. %s", lastCorrectAnswer, lastQuestion.Options[lastCorrectAnswer])
			if err := sendJSON(conn, map[string]any{
				"out_of_time": map[string]any{"answer": answerText},
			}); err != nil {
				return
			}
			if _, err := conn.ReadText(ctx); err != nil {
				return
			}
			waitingAfterQuestion = false
			ranOutOfTime = false
		} else if waitingAfterQuestion {
			if _, err := conn.ReadText(ctx); err != nil {
				return
			}
		}

		// Reload after the drain/ack wait, since time may have passed.
		players, err = e.Store.GetPlayers(ctx, code)
		if err != nil {
			e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: reload players failed")
			return
		}
		player, ok = players[name]
		if !ok {
			_ = conn.WriteText("[USER_NOT_IN_GAME]")
			return
		}

		if len(player.RemainingQuestions) == 0 && player.CurrentQuestionIndex == -1 {
			_ = conn.WriteText("[ALL_QUESTIONS_ANSWERED]")
			return
		}

		if player.QuestionStartTime != nil && time.Since(*player.QuestionStartTime) >= TimeLimit {
			player.IncorrectQuestions = append(player.IncorrectQuestions, player.CurrentQuestionIndex)
			player.CurrentQuestionIndex = -1
			player.QuestionAttempt = 0
			player.QuestionStartTime = nil
			players[name] = player
			if err := e.Store.PutPlayers(ctx, code, players); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: save expiry reset failed")
				return
			}

			if len(player.RemainingQuestions) == 0 && player.CurrentQuestionIndex == -1 {
				_ = conn.WriteText("[ALL_QUESTIONS_ANSWERED]")
				return
			}
		}

		var questionIndex int
		if player.CurrentQuestionIndex == -1 {
			remaining := player.RemainingQuestions
			questionIndex = remaining[len(remaining)-1]
			player.RemainingQuestions = remaining[:len(remaining)-1]
			now := time.Now()
			player.QuestionStartTime = &now
			player.CurrentQuestionIndex = questionIndex
			players[name] = player
			if err := e.Store.PutPlayers(ctx, code, players); err != nil {
				e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: save new question failed")
				return
			}
		} else {
			questionIndex = player.CurrentQuestionIndex
		}

		question := game.Questions[questionIndex]
		correctAnswer := question.Answer
		startTime := *player.QuestionStartTime

		playerQuestion := question.ToPlayerQuestion(startTime, len(player.RemainingQuestions), len(game.Questions))
		if err := sendJSON(conn, map[string]any{"question": playerQuestion}); err != nil {
			return
		}

		points := 0
		lastQuestion = question
		lastCorrectAnswer = correctAnswer

		for attempt := player.QuestionAttempt; attempt < model.NumAttempts; attempt++ {
			userAnswer, timedOut, disconnected := e.receiveValidAnswer(ctx, conn, code, question, startTime)
			if disconnected {
				return
			}
			if timedOut {
				if err := e.markQuestionTimedOut(ctx, code, name, questionIndex); err != nil {
					e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: save timeout failed")
					return
				}
				ranOutOfTime = true
				points = 0
				break
			}

			if strings.EqualFold(correctAnswer, userAnswer) {
				points = scoring.Score(attempt, time.Since(startTime).Seconds())
				if err := sendJSON(conn, map[string]any{
					"attempt": map[string]any{"valid": true, "final": true, "correct": true, "points": points},
				}); err != nil {
					return
				}
				players, err = e.Store.GetPlayers(ctx, code)
				if err != nil {
					return
				}
				p := players[name]
				p.CorrectQuestions = append(p.CorrectQuestions, questionIndex)
				players[name] = p
				if err := e.Store.PutPlayers(ctx, code, players); err != nil {
					return
				}
				waitingAfterQuestion = true
				break
			}

			if attempt == 0 {
				if err := sendJSON(conn, map[string]any{
					"attempt": map[string]any{"valid": true, "final": false, "correct": false},
				}); err != nil {
					return
				}
				players, err = e.Store.GetPlayers(ctx, code)
				if err != nil {
					return
				}
				p := players[name]
				p.QuestionAttempt++
				players[name] = p
				if err := e.Store.PutPlayers(ctx, code, players); err != nil {
					return
				}

				if e.HintSource != nil {
					hintText, err := e.HintSource(code).HintForQuestion(ctx, questionIndex, question.Question, question.Options[correctAnswer], userAnswer, question.Options[userAnswer])
					if err != nil {
						e.Log.Warn().Err(err).Str("game_code", code).Str("player", name).Msg("question task: hint provider failed, continuing without hint")
					} else {
						if err := sendJSON(conn, map[string]any{"help": hintText}); err != nil {
							return
						}
					}
				}
				continue
			}

			// Last attempt, still wrong.
			points = 0
			if err := sendJSON(conn, map[string]any{
				"attempt": map[string]any{"final": true, "correct": false, "points": 0, "answer": correctAnswer},
			}); err != nil {
				return
			}
			players, err = e.Store.GetPlayers(ctx, code)
			if err != nil {
				return
			}
			p := players[name]
			p.IncorrectQuestions = append(p.IncorrectQuestions, questionIndex)
			players[name] = p
			if err := e.Store.PutPlayers(ctx, code, players); err != nil {
				return
			}
			waitingAfterQuestion = true
			break
		}

		players, err = e.Store.GetPlayers(ctx, code)
		if err != nil {
			e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: reload players before scoring failed")
			return
		}
		p := players[name]
		p.Score += points
		p.CurrentQuestionIndex = -1
		p.QuestionAttempt = 0
		p.QuestionStartTime = nil
		players[name] = p
		if err := e.Store.PutPlayers(ctx, code, players); err != nil {
			e.Log.Error().Err(err).Str("game_code", code).Str("player", name).Msg("question task: save final score failed")
			return
		}
		waitingAfterQuestion = true

		rel := leaderboard.ForPlayer(players, name)
		if err := sendJSON(conn, map[string]any{"leaderboard": rel}); err != nil {
			return
		}
	}
}

// drainInbound discards queued inbound text with a short timeout, clearing
// pre-start noise. A real read error (not a timeout) means the connection
// is gone.
func (e *Engine) drainInbound(ctx context.Context, conn Conn) error {
	for {
		drainCtx, cancel := context.WithTimeout(ctx, DrainTimeout)
		_, err := conn.ReadText(drainCtx)
		cancel()
		if err == nil {
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

// receiveValidAnswer blocks until a syntactically valid answer arrives, the
// deadline (question_start_time + TimeLimit) expires, the game state isn't
// STARTED at arrival (in which case it's silently discarded), or the
// connection is gone.
func (e *Engine) receiveValidAnswer(ctx context.Context, conn Conn, code string, question model.Question, startTime time.Time) (answer string, timedOut, disconnected bool) {
	deadline := startTime.Add(TimeLimit)

	for {
		attemptCtx, cancel := context.WithDeadline(ctx, deadline)
		raw, err := conn.ReadText(attemptCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return "", true, false
			}
			return "", false, true
		}

		normalized, ok := validateAnswer(raw, question.Options)
		if !ok {
			if sendErr := sendJSON(conn, map[string]any{
				"attempt": map[string]any{"valid": false, "final": false, "correct": false, "points": 0},
			}); sendErr != nil {
				return "", false, true
			}
			continue
		}

		state, err := e.Store.GetState(ctx, code)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", false, true
		}
		if state != model.StateStarted {
			continue
		}

		return normalized, false, false
	}
}

// markQuestionTimedOut performs the timeout-transition store write: the
// in-flight question moves to incorrect_questions and the in-flight fields
// reset, matching the inline mutation in helper.py's handle_questions on
// asyncio.TimeoutError.
func (e *Engine) markQuestionTimedOut(ctx context.Context, code, name string, questionIndex int) error {
	players, err := e.Store.GetPlayers(ctx, code)
	if err != nil {
		return err
	}
	p, ok := players[name]
	if !ok {
		return nil
	}
	p.IncorrectQuestions = append(p.IncorrectQuestions, questionIndex)
	p.CurrentQuestionIndex = -1
	p.QuestionAttempt = 0
	p.QuestionStartTime = nil
	players[name] = p
	return e.Store.PutPlayers(ctx, code, players)
}

// validateAnswer trims the raw input and matches it case-insensitively
// against question option keys, normalizing to the keys' shared case.
func validateAnswer(raw string, options map[string]string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if len(options) == 0 {
		return "", false
	}

	upper := false
	for k := range options {
		upper = k == strings.ToUpper(k)
		break
	}

	for k := range options {
		if strings.EqualFold(k, trimmed) {
			if upper {
				return strings.ToUpper(trimmed), true
			}
			return strings.ToLower(trimmed), true
		}
	}
	return "", false
}
