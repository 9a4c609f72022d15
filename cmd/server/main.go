package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/breakline/server/internal/config"
	"github.com/freeeve/breakline/server/internal/gamedata"
	"github.com/freeeve/breakline/server/internal/handler"
	"github.com/freeeve/breakline/server/internal/logger"
	"github.com/freeeve/breakline/server/internal/middleware"
	"github.com/freeeve/breakline/server/internal/repository"
	redisrepo "github.com/freeeve/breakline/server/internal/repository/redis"
	"github.com/freeeve/breakline/server/internal/session"
	"github.com/freeeve/breakline/server/pkg/sim"
)

func main() {
	logger.Init()
	cfg := config.Load()
	log.Info().Str("port", cfg.Port).Int("maxGames", cfg.MaxConcurrentGames).Msg("Config loaded")

	// Unit roster
	data, err := gamedata.Load(cfg.RosterPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.RosterPath).Msg("Roster load failed")
	}

	// Live session registry (optional; sessions run fine without it)
	var live repository.SessionRegistry = repository.Noop{}
	if cfg.RedisURL != "" {
		redisClient, err := redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		live = redisrepo.NewRegistry(redisClient)
		log.Info().Msg("Redis session registry enabled")
	}

	// Session manager
	manager := session.NewManager(session.Config{
		MaxGames:      cfg.MaxConcurrentGames,
		DisposalDelay: cfg.DisposalDelay,
		Sim:           cfg.Sim(),
		NewMap: func() *sim.GameMap {
			return gamedata.DefaultMap(rand.Uint32())
		},
	}, data, live)

	// Handlers
	gameHandler := handler.NewGameHandler(manager)
	wsHandler := handler.NewWSHandler(manager)

	// Router
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /api/health", gameHandler.Health)

	// Match lifecycle
	mux.HandleFunc("POST /api/games", gameHandler.CreateGame)
	mux.HandleFunc("GET /api/games/{code}", gameHandler.GetGame)
	mux.HandleFunc("DELETE /api/games/{code}", gameHandler.EndGame)
	mux.HandleFunc("GET /api/load", gameHandler.GetLoad)

	// WebSocket (player identity via query param)
	mux.HandleFunc("GET /ws/{code}", wsHandler.ServeWS)

	// Apply global middleware
	root := middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	// Stop accepting new games and end the running ones before closing
	// the listener, so final game events still reach connected clients.
	manager.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
