package http

import (
	"time"

	"quest_webapp/internal/config"
	"quest_webapp/internal/http/handlers"
	"quest_webapp/internal/http/middleware"
	"quest_webapp/internal/service"
	"quest_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, h *handlers.Handler, tokens *service.TokenService, hub *ws.Hub, cfg *config.Config, version string) {
	healthHandler := handlers.NewHealthHandler(db, version)

	apiRateWindow := time.Duration(cfg.APIRateWindow) * time.Second
	authRateWindow := time.Duration(cfg.AuthRateWindow) * time.Second

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	auth := middleware.JWT(tokens)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit, apiRateWindow))
	{
		v1.POST("/auth", middleware.RedisRateLimit(cfg.AuthRateLimit, authRateWindow), h.Auth)

		v1.GET("/me", auth, h.Me)
		v1.GET("/energy", auth, h.Energy)
		v1.POST("/points", auth, h.AddPoints)

		v1.POST("/game/complete", auth,
			middleware.UserRateLimit("game", cfg.GamesPerMinute, time.Minute), h.CompleteGame)

		v1.GET("/pet", auth, h.Pet)
		v1.POST("/pet/feed", auth,
			middleware.UserRateLimit("feed", cfg.FeedsPerMinute, time.Minute), h.FeedPet)
		v1.POST("/pet/claim", auth, h.ClaimPetYield)

		v1.POST("/wallet/connect", auth, h.ConnectWallet)
		v1.DELETE("/wallet", auth, h.DisconnectWallet)

		v1.GET("/leaderboard", h.Leaderboard)
	}

	// Live progression events
	r.GET("/ws", ws.HandleWS(hub, tokens, cfg.AllowedOrigin))
}
