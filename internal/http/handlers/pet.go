package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pet returns the caller's pet, creating the unhatched row on first
// access.
func (h *Handler) Pet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	pet, err := h.Svc.GetPet(c.Request.Context(), userID)
	if err != nil {
		rejectError(c, err)
		return
	}

	resp := petResponse(pet)
	resp["claimable"] = h.Svc.Claimable(pet, time.Now())
	c.JSON(http.StatusOK, resp)
}

// FeedPet spends points on a feeding.
func (h *Handler) FeedPet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	pet, err := h.Svc.FeedPet(c.Request.Context(), userID)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, petResponse(pet))
}

// ClaimPetYield settles accrued yield into points.
func (h *Handler) ClaimPetYield(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	res, err := h.Svc.ClaimPetYield(c.Request.Context(), userID)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"amount": res.Amount,
		"pet":    petResponse(res.Pet),
		"user":   userResponse(res.User),
	})
}
