package handlers

import (
	"errors"
	"net/http"
	"time"

	"quest_webapp/internal/http/middleware"
	"quest_webapp/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

// Auth exchanges a signed initData payload for a session token. There
// is no validation bypass here: every request, in every environment,
// goes through the gate.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if len(req.InitData) > 4096 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data too long"})
		return
	}

	principal, err := h.Gate.Authenticate(req.InitData, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, telegram.ErrInvalidSignature):
			middleware.AuthRejected.WithLabelValues("invalid_signature").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid telegram signature"})
		case errors.Is(err, telegram.ErrStale):
			middleware.AuthRejected.WithLabelValues("stale").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "stale telegram data"})
		default:
			middleware.AuthRejected.WithLabelValues("parse").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed init_data"})
		}
		return
	}

	user, err := h.Svc.RegisterPrincipal(c.Request.Context(), principal)
	if err != nil {
		rejectError(c, err)
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}
