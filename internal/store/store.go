// Package store is the thin key/value adapter for the four per-game keys
// (game, players, state, ai_cache): typed get/put for each. All writes are
// whole-value replacements; reads return the
// current snapshot. Grounded on
// original_source/backend/helper/helper.py's get_game_data/save_game_data
// family and on 1kaius1-MUD-Engine/go.mod's declared (there, unused)
// github.com/redis/go-redis/v9 dependency.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizrunner/internal/model"
)

// ErrNotFound is returned when a key has no value in the store.
var ErrNotFound = errors.New("store: key not found")

// Store is the interface the engine and API handlers depend on. The
// production implementation is Redis-backed; tests use an in-memory double
// (see memory.go) so engine/API logic can be exercised without a live
// Redis.
type Store interface {
	GetGame(ctx context.Context, code string) (*model.Game, error)
	PutGame(ctx context.Context, code string, game *model.Game) error

	GetPlayers(ctx context.Context, code string) (model.Players, error)
	PutPlayers(ctx context.Context, code string, players model.Players) error

	GetState(ctx context.Context, code string) (model.GameState, error)
	PutState(ctx context.Context, code string, state model.GameState) error

	GetAICache(ctx context.Context, code string) (AICache, error)
	PutAICache(ctx context.Context, code string, cache AICache) error
}

// AICache maps question index -> wrong option key -> cached hint text, the
// whole-value record at game:<code>:ai_cache.
type AICache map[string]map[string]string

func gameKey(code string) string    { return fmt.Sprintf("game:%s", code) }
func playersKey(code string) string { return fmt.Sprintf("game:%s:players", code) }
func stateKey(code string) string   { return fmt.Sprintf("game:%s:state", code) }
func aiCacheKey(code string) string { return fmt.Sprintf("game:%s:ai_cache", code) }

// RedisStore is the production Store backed by a *redis.Client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func get[T any](ctx context.Context, c *redis.Client, key string) (T, error) {
	var zero T
	raw, err := c.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("store: get %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return v, nil
}

func put(ctx context.Context, c *redis.Client, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := c.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetGame(ctx context.Context, code string) (*model.Game, error) {
	g, err := get[model.Game](ctx, s.client, gameKey(code))
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *RedisStore) PutGame(ctx context.Context, code string, game *model.Game) error {
	return put(ctx, s.client, gameKey(code), game)
}

func (s *RedisStore) GetPlayers(ctx context.Context, code string) (model.Players, error) {
	p, err := get[model.Players](ctx, s.client, playersKey(code))
	if errors.Is(err, ErrNotFound) {
		return model.Players{}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *RedisStore) PutPlayers(ctx context.Context, code string, players model.Players) error {
	return put(ctx, s.client, playersKey(code), players)
}

func (s *RedisStore) GetState(ctx context.Context, code string) (model.GameState, error) {
	raw, err := s.client.Get(ctx, stateKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get state: %w", err)
	}
	var state string
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return "", fmt.Errorf("store: decode state: %w", err)
	}
	return model.GameState(state), nil
}

func (s *RedisStore) PutState(ctx context.Context, code string, state model.GameState) error {
	return put(ctx, s.client, stateKey(code), string(state))
}

func (s *RedisStore) GetAICache(ctx context.Context, code string) (AICache, error) {
	c, err := get[AICache](ctx, s.client, aiCacheKey(code))
	if errors.Is(err, ErrNotFound) {
		return AICache{}, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *RedisStore) PutAICache(ctx context.Context, code string, cache AICache) error {
	return put(ctx, s.client, aiCacheKey(code), cache)
}
