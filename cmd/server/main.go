// Command quizrunner starts the trivia engine's HTTP/WS server. Wiring and
// graceful shutdown mirror
// _examples/tkahng-quick-sticks/cmd/main.go's signal-driven shutdown, with
// configuration and logging now coming from internal/config and
// internal/logging instead of hardcoded constants.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"quizrunner/internal/api"
	"quizrunner/internal/avatar"
	"quizrunner/internal/catalog"
	"quizrunner/internal/config"
	"quizrunner/internal/engine"
	"quizrunner/internal/hint"
	"quizrunner/internal/logging"
	"quizrunner/internal/store"
	"quizrunner/internal/wsconn"
)

func main() {
	if err := config.Load(os.Args[1:], run); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logging.Setup(cfg)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	s := store.NewRedisStore(redisClient)

	var avatarLookup avatar.Lookup
	if cfg.AvatarLookupURL != "" {
		avatarLookup = avatar.NewHTTPLookup(cfg.AvatarLookupURL)
	}

	hintProvider := hint.NewHTTPProvider(cfg.HintProviderURL, cfg.HintProviderAPIKey)
	eng := engine.New(s, engine.NewHintSource(hintProvider, s), avatarLookup, log)

	a := &api.API{
		Store:    s,
		Engine:   eng,
		Catalog:  catalog.NewHTTPGenerator(cfg.QuestionProviderURL),
		Avatar:   avatarLookup,
		Upgrader: wsconn.DefaultUpgrader(cfg.AllowedOrigins),
		Log:      log,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(a, cfg.AllowedOrigins),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("quizrunner starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-sig:
		log.Info().Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("quizrunner stopped")
	return nil
}
