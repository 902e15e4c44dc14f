package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Me returns the caller's current state snapshot.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	user, err := h.Svc.GetUser(c.Request.Context(), userID)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// Energy reports regenerated energy and the countdown to the next point.
func (h *Handler) Energy(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, err := h.Svc.GetEnergyState(c.Request.Context(), userID)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type GameCompleteRequest struct {
	Score           int64 `json:"score"`
	DurationSeconds int   `json:"duration_seconds"`
}

// CompleteGame settles a finished game session.
func (h *Handler) CompleteGame(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req GameCompleteRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	res, err := h.Svc.CompleteGame(c.Request.Context(), userID, req.Score, req.DurationSeconds)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"points_earned": res.PointsEarned,
		"rank_reward":   res.RankReward,
		"user":          userResponse(res.User),
	})
}

type AddPointsRequest struct {
	Delta int64 `json:"delta"`
}

// AddPoints applies a raw point delta to the caller.
func (h *Handler) AddPoints(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req AddPointsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	user, err := h.Svc.AddPoints(c.Request.Context(), userID, req.Delta)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}
