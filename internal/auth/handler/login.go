package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/otp"
)

type loginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Login starts email verification for an existing account.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.log.Error("login: user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found. Please sign up first.",
		})
		return
	}

	if err := h.codes.Issue(c.Request.Context(), req.Email, otp.Pending{}); err != nil {
		h.log.Error("login: failed to issue code", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login email sent. Please check your inbox.",
		"email":   req.Email,
	})
}
