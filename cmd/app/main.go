package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quest_webapp/internal/config"
	"quest_webapp/internal/db"
	httpServer "quest_webapp/internal/http"
	"quest_webapp/internal/http/handlers"
	"quest_webapp/internal/http/middleware"
	"quest_webapp/internal/jobs"
	"quest_webapp/internal/logger"
	"quest_webapp/internal/repository"
	"quest_webapp/internal/service"
	"quest_webapp/internal/telegram"
	"quest_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	users := repository.NewUserRepository(dbPool)
	pets := repository.NewPetRepository(dbPool)

	tokens := service.NewTokenService(cfg.JWTSecret, 0)
	gate := telegram.NewGate(telegram.GateConfig{
		BotToken: cfg.BotToken,
		MaxAge:   cfg.AuthMaxAge(),
	})

	hub := ws.NewHub()
	hub.StartCleanup()

	svc := service.NewProgressionService(users, pets, service.ProgressionConfig{
		Energy:             cfg.EnergyPolicy(),
		Pet:                cfg.PetPolicy(),
		UserLevels:         cfg.UserLevels(),
		Ranks:              cfg.RankTable(),
		Limits:             cfg.RateLimits(),
		GameEnergyCost:     cfg.GameEnergyCost,
		MaxPointsPerSecond: cfg.MaxPointsPerSecond,
	}, hub)

	scheduler := jobs.NewScheduler(users, svc.Limiter())
	if err := scheduler.Start(); err != nil {
		logger.Fatal("scheduler start failed", "error", err)
	}
	defer scheduler.Stop()

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.Default()

	// CORS for the mini app frontend on a different domain
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandler(svc, tokens, gate, users)
	httpServer.RegisterRoutes(r, dbPool, h, tokens, hub, cfg, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
