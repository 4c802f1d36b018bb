package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"reviewking/agent/internal/agent"
	"reviewking/agent/internal/api"
	"reviewking/agent/internal/config"
	"reviewking/agent/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	// --- Redis ---
	redisSvc, err := services.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.SessionTTLHrs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisSvc.Close()
	log.Info().Msg("connected to Redis")

	// --- Services ---
	sessions := services.NewRedisSessions(redisSvc)
	backend := services.NewBackendClient(cfg.BackendURL, log)
	agentSvc := agent.New(backend, sessions, cfg.PerPage, log)

	// --- HTTP Server ---
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, agentSvc, redisSvc, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("agent listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := agentSvc.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("session cleanup failed")
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
