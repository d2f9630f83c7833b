package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizrunner/internal/model"
)

func seedSoloPlayerGame(t *testing.T, e *Engine, code, name string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Store.PutGame(ctx, code, &model.Game{
		Code: code,
		Questions: []model.Question{
			{Question: "2+2?", Options: map[string]string{"a": "3", "b": "4"}, Answer: "b"},
		},
	}))
	require.NoError(t, e.Store.PutState(ctx, code, model.StateStarted))
	require.NoError(t, e.Store.PutPlayers(ctx, code, model.Players{
		name: {
			ID:                   name,
			RemainingQuestions:   []int{0},
			CorrectQuestions:     []int{},
			IncorrectQuestions:   []int{},
			CurrentQuestionIndex: -1,
		},
	}))
}

// frameKeys extracts the top-level JSON object keys of every written frame
// that parses as an object; non-JSON frames like "[WAITING]" are skipped.
func frameKeys(t *testing.T, frames []string) []string {
	t.Helper()
	var keys []string
	for _, f := range frames {
		var m map[string]json.RawMessage
		if err := json.Unmarshal([]byte(f), &m); err != nil {
			continue
		}
		for k := range m {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestHandlePlayerQuestions_HappyPath_FirstAttemptCorrect(t *testing.T) {
	e, _ := newTestEngine(t)
	seedSoloPlayerGame(t, e, "ABCDE", "alice")

	conn := newFakeConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.handlePlayerQuestions(ctx, conn, "ABCDE", "alice")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"question"`)
	}, time.Second, 5*time.Millisecond, "expected a question frame")

	conn.send("b")

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"leaderboard"`)
	}, time.Second, 5*time.Millisecond, "expected a leaderboard frame after a correct final answer")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlePlayerQuestions did not return after cancellation")
	}

	players, err := e.Store.GetPlayers(context.Background(), "ABCDE")
	require.NoError(t, err)
	alice := players["alice"]
	assert.Equal(t, []int{0}, alice.CorrectQuestions)
	assert.Empty(t, alice.IncorrectQuestions)
	assert.Greater(t, alice.Score, 0)
	assert.Equal(t, -1, alice.CurrentQuestionIndex)
}

type fakeHintSource struct {
	calls *int
	hint  string
}

func (f fakeHintSource) HintForQuestion(_ context.Context, _ int, _, _, _, _ string) (string, error) {
	*f.calls++
	return f.hint, nil
}

func TestHandlePlayerQuestions_WrongThenRightUsesHintOnFirstMiss(t *testing.T) {
	e, _ := newTestEngine(t)
	seedSoloPlayerGame(t, e, "FGHIJ", "bob")

	var hintCalls int
	e.HintSource = func(code string) HintSource {
		return fakeHintSource{calls: &hintCalls, hint: "think about it"}
	}

	conn := newFakeConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.handlePlayerQuestions(ctx, conn, "FGHIJ", "bob")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"question"`)
	}, time.Second, 5*time.Millisecond)

	conn.send("a") // wrong on first attempt

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"help"`)
	}, time.Second, 5*time.Millisecond, "expected a hint frame after the first wrong attempt")

	conn.send("b") // correct on second attempt

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"leaderboard"`)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlePlayerQuestions did not return after cancellation")
	}

	assert.Equal(t, 1, hintCalls)

	players, err := e.Store.GetPlayers(context.Background(), "FGHIJ")
	require.NoError(t, err)
	bob := players["bob"]
	assert.Equal(t, []int{0}, bob.CorrectQuestions)
	// Second-attempt score is lower than a first-attempt score would be, but
	// still positive.
	assert.Greater(t, bob.Score, 0)
}

func TestHandlePlayerQuestions_InvalidAnswerIsRejectedAndRetried(t *testing.T) {
	e, _ := newTestEngine(t)
	seedSoloPlayerGame(t, e, "KLMNO", "carol")

	conn := newFakeConn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.handlePlayerQuestions(ctx, conn, "KLMNO", "carol")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"question"`)
	}, time.Second, 5*time.Millisecond)

	conn.send("z") // not a valid option key at all

	require.Eventually(t, func() bool {
		keys := frameKeys(t, conn.written())
		for _, k := range keys {
			if k == "attempt" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond, "expected an invalid-attempt frame")

	conn.send("b") // now answer correctly

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"leaderboard"`)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlePlayerQuestions did not return after cancellation")
	}
}

func TestHandlePlayerQuestions_AllQuestionsAnsweredEndsSession(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Store.PutGame(ctx, "PQRST", &model.Game{Code: "PQRST"}))
	require.NoError(t, e.Store.PutState(ctx, "PQRST", model.StateStarted))
	require.NoError(t, e.Store.PutPlayers(ctx, "PQRST", model.Players{
		"dana": {ID: "dana", CurrentQuestionIndex: -1, RemainingQuestions: nil},
	}))

	conn := newFakeConn()
	e.handlePlayerQuestions(ctx, conn, "PQRST", "dana")

	assert.Equal(t, []string{"[ALL_QUESTIONS_ANSWERED]"}, conn.written())
}

func TestHandlePlayerQuestions_TimeoutOnLastQuestionEndsSession(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Store.PutGame(ctx, "TIME1", &model.Game{
		Code: "TIME1",
		Questions: []model.Question{
			{Question: "2+2?", Options: map[string]string{"a": "3", "b": "4"}, Answer: "b"},
		},
	}))
	require.NoError(t, e.Store.PutState(ctx, "TIME1", model.StateStarted))

	// Already dealt, deadline a few hundred ms away so the test doesn't wait
	// a real 30s, but with enough headroom that the drain/reload before the
	// attempt loop can't itself cross the deadline.
	start := time.Now().Add(-TimeLimit + 500*time.Millisecond)
	require.NoError(t, e.Store.PutPlayers(ctx, "TIME1", model.Players{
		"gail": {
			ID:                   "gail",
			RemainingQuestions:   []int{},
			CorrectQuestions:     []int{},
			IncorrectQuestions:   []int{},
			CurrentQuestionIndex: 0,
			QuestionStartTime:    &start,
		},
	}))

	conn := newFakeConn()
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.handlePlayerQuestions(runCtx, conn, "TIME1", "gail")
		close(done)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), `"out_of_time"`)
	}, 2*time.Second, 5*time.Millisecond, "expected an out_of_time frame once the deadline lapsed")

	conn.send("ack") // unblock the post-timeout acknowledgement wait

	require.Eventually(t, func() bool {
		return strings.Contains(strings.Join(conn.written(), "|"), "[ALL_QUESTIONS_ANSWERED]")
	}, time.Second, 5*time.Millisecond, "expected the session to end once the only question timed out")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handlePlayerQuestions did not return after cancellation")
	}

	players, err := e.Store.GetPlayers(context.Background(), "TIME1")
	require.NoError(t, err)
	gail := players["gail"]
	assert.Equal(t, []int{0}, gail.IncorrectQuestions)
	assert.Equal(t, -1, gail.CurrentQuestionIndex)
}

// TestHandlePlayerQuestions_ReconnectAfterExpiryOnLastQuestionDoesNotPanic
// reproduces reconnecting after the timer for the player's last in-flight
// question already lapsed: RemainingQuestions is already empty (it was
// popped when the question was dealt), so the timeout-reset branch must
// re-check the all-questions-answered exit before trying to pop another
// question off an empty slice.
func TestHandlePlayerQuestions_ReconnectAfterExpiryOnLastQuestionDoesNotPanic(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Store.PutGame(ctx, "TIME2", &model.Game{
		Code: "TIME2",
		Questions: []model.Question{
			{Question: "2+2?", Options: map[string]string{"a": "3", "b": "4"}, Answer: "b"},
		},
	}))
	require.NoError(t, e.Store.PutState(ctx, "TIME2", model.StateStarted))

	longExpired := time.Now().Add(-TimeLimit - time.Minute)
	require.NoError(t, e.Store.PutPlayers(ctx, "TIME2", model.Players{
		"hank": {
			ID:                   "hank",
			RemainingQuestions:   []int{},
			CorrectQuestions:     []int{},
			IncorrectQuestions:   []int{},
			CurrentQuestionIndex: 0,
			QuestionStartTime:    &longExpired,
		},
	}))

	conn := newFakeConn()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("handlePlayerQuestions panicked on reconnect-after-expiry: %v", r)
		}
	}()
	e.handlePlayerQuestions(ctx, conn, "TIME2", "hank")

	assert.Equal(t, []string{"[ALL_QUESTIONS_ANSWERED]"}, conn.written())

	players, err := e.Store.GetPlayers(context.Background(), "TIME2")
	require.NoError(t, err)
	hank := players["hank"]
	assert.Equal(t, []int{0}, hank.IncorrectQuestions)
	assert.Equal(t, -1, hank.CurrentQuestionIndex)
}

func TestRunPlayerSession_UnknownGameRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	conn := newFakeConn()

	e.RunPlayerSession(context.Background(), conn, "NOPE1", "erin")

	assert.Equal(t, []string{"[GAME_NOT_FOUND]"}, conn.written())
}

func TestRunPlayerSession_UnregisteredPlayerRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Store.PutGame(ctx, "UVWXY", &model.Game{Code: "UVWXY"}))
	require.NoError(t, e.Store.PutPlayers(ctx, "UVWXY", model.Players{}))

	conn := newFakeConn()
	e.RunPlayerSession(ctx, conn, "UVWXY", "frank")

	assert.Equal(t, []string{"[USER_NOT_IN_GAME]"}, conn.written())
}
