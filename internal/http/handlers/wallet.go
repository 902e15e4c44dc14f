package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ConnectWalletRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
}

// ConnectWallet stores the caller's wallet address and public key. The
// backend only records them for later reward claims; it never submits
// chain transactions.
func (h *Handler) ConnectWallet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req ConnectWalletRequest
	if err := c.BindJSON(&req); err != nil || req.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	user, err := h.Svc.ConnectWallet(c.Request.Context(), userID, req.Address, req.PublicKey)
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// DisconnectWallet clears the stored wallet binding.
func (h *Handler) DisconnectWallet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	user, err := h.Svc.ConnectWallet(c.Request.Context(), userID, "", "")
	if err != nil {
		rejectError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}
