package main

import (
	"time"

	"clone-game-be/internal/api/http"
	"clone-game-be/internal/config"
	"clone-game-be/internal/generator"
	"clone-game-be/internal/logger"
	"clone-game-be/internal/service"
	"clone-game-be/internal/state"
	"clone-game-be/internal/store"

	"github.com/go-redis/redis/v8"
)

func main() {
	// Load configuration
	cfg := config.InitConfig()

	// Initialize the logger
	logger.InitLogger(cfg.LogLevel)

	// Snapshot store: Redis when configured, otherwise in-process
	var docs store.DocStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		docs = store.NewRedisStore(rdb)
	} else {
		docs = store.NewMemoryStore()
	}

	// Answer generator: remote service when configured, the local
	// fallback otherwise
	var gen generator.Generator
	if cfg.GeneratorURL != "" {
		gen = generator.NewHTTPGenerator(generator.HTTPConfig{
			EndpointURL: cfg.GeneratorURL,
			Timeout:     time.Duration(cfg.GeneratorTimeoutSec) * time.Second,
		})
	}

	// Assemble application state
	appState := state.NewAppState(
		cfg,
		service.NewRoomService(gen, docs, cfg.VoteTieBreak),
	)

	// Start the server
	http.RunServer(appState)
}
