package hint

import (
	"context"
	"fmt"

	"quizrunner/internal/store"
)

// CachedProvider wraps a Provider with a store-backed cache keyed by
// (question index, wrong answer key), mirroring
// original_source/backend/helper/helper.py's get_ai_response_cache /
// save_ai_response_cache pair: a hint is generated once per distinct wrong
// answer to a given question, then reused for every player who makes the
// same mistake.
type CachedProvider struct {
	inner    Provider
	store    store.Store
	gameCode string
}

// NewCachedProvider returns a CachedProvider that checks/populates the given
// game's ai_cache record around calls to inner.
func NewCachedProvider(inner Provider, s store.Store, gameCode string) *CachedProvider {
	return &CachedProvider{inner: inner, store: s, gameCode: gameCode}
}

// HintForQuestion is the cache-aware entry point used by the engine, which
// knows the question's index within the quiz and needs that to key the
// cache consistently across players who make the same mistake. wrongAnswer
// is the option key (e.g. "a"), used only for cache keying; wrongAnswerText
// is the option's text, sent to the provider.
func (c *CachedProvider) HintForQuestion(ctx context.Context, questionIndex int, question, correctAnswer, wrongAnswer, wrongAnswerText string) (string, error) {
	qKey := fmt.Sprintf("%d", questionIndex)

	cache, err := c.store.GetAICache(ctx, c.gameCode)
	if err != nil {
		return "", fmt.Errorf("hint: load cache: %w", err)
	}
	if byAnswer, ok := cache[qKey]; ok {
		if cached, ok := byAnswer[wrongAnswer]; ok {
			return cached, nil
		}
	}

	text, err := c.inner.Hint(ctx, question, correctAnswer, wrongAnswerText)
	if err != nil {
		return "", err
	}

	if cache == nil {
		cache = store.AICache{}
	}
	if cache[qKey] == nil {
		cache[qKey] = map[string]string{}
	}
	cache[qKey][wrongAnswer] = text

	if err := c.store.PutAICache(ctx, c.gameCode, cache); err != nil {
		return "", fmt.Errorf("hint: save cache: %w", err)
	}
	return text, nil
}
