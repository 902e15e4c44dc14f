package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Leaderboard returns the top users by lifetime points.
func (h *Handler) Leaderboard(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	users, err := h.Users.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	entries := make([]gin.H, 0, len(users))
	for i, u := range users {
		entries = append(entries, gin.H{
			"position":        i + 1,
			"username":        u.Username,
			"first_name":      u.FirstName,
			"lifetime_points": u.LifetimePoints,
			"level":           u.Level,
			"rank":            u.CurrentRank.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
