package handlers

import (
	"errors"
	"net/http"

	"quest_webapp/internal/domain"
	"quest_webapp/internal/http/middleware"
	"quest_webapp/internal/repository"
	"quest_webapp/internal/service"
	"quest_webapp/internal/telegram"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Svc    *service.ProgressionService
	Tokens *service.TokenService
	Gate   *telegram.Gate
	Users  *repository.UserRepository
}

func NewHandler(svc *service.ProgressionService, tokens *service.TokenService, gate *telegram.Gate, users *repository.UserRepository) *Handler {
	return &Handler{Svc: svc, Tokens: tokens, Gate: gate, Users: users}
}

// getUserID extracts the authenticated user id set by the JWT middleware.
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := uidVal.(int64)
	return id, ok
}

func requireUserID(c *gin.Context) (int64, bool) {
	id, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

// rejectError maps engine errors onto HTTP responses. Policy
// rejections are 4xx; a retry-exhausted conflict is 409 so the client
// knows to simply try again.
func rejectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrRateLimited):
		middleware.OpRejected.WithLabelValues("rate_limited").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
	case errors.Is(err, domain.ErrDailyCapExceeded):
		middleware.OpRejected.WithLabelValues("daily_cap").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "daily feed cap exceeded"})
	case errors.Is(err, domain.ErrBelowClaimMinimum):
		middleware.OpRejected.WithLabelValues("below_minimum").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "claimable yield below minimum"})
	case errors.Is(err, domain.ErrClaimCooldown):
		middleware.OpRejected.WithLabelValues("claim_cooldown").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "claim cooldown active"})
	case errors.Is(err, domain.ErrNoEnergy):
		middleware.OpRejected.WithLabelValues("no_energy").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not enough energy"})
	case errors.Is(err, domain.ErrInsufficientPoints):
		middleware.OpRejected.WithLabelValues("insufficient_points").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not enough points"})
	case errors.Is(err, domain.ErrImplausibleScore):
		middleware.OpRejected.WithLabelValues("implausible_score").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "score not plausible for duration"})
	case errors.Is(err, domain.ErrConflict):
		middleware.OpConflicts.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func userResponse(u *domain.UserState) gin.H {
	return gin.H{
		"id":              u.ID,
		"external_id":     u.ExternalID,
		"username":        u.Username,
		"first_name":      u.FirstName,
		"wallet_address":  u.WalletAddress,
		"total_points":    u.TotalPoints,
		"lifetime_points": u.LifetimePoints,
		"level":           u.Level,
		"current_xp":      u.CurrentXP,
		"rank":            u.CurrentRank.String(),
		"current_energy":  u.CurrentEnergy,
		"created_at":      u.CreatedAt,
	}
}

func petResponse(p *domain.PetState) gin.H {
	return gin.H{
		"xp":            p.XP,
		"level":         p.Level,
		"hatched":       p.Hatched,
		"last_feed_at":  p.LastFeedAt,
		"last_claim_at": p.LastClaimAt,
		"daily_spend":   p.DailySpend,
	}
}
