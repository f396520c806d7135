package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/otp"
)

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// Verify consumes an email code and logs the user in, creating the
// account first when the code came from a signup request.
func (h *Handler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	pending, err := h.codes.Verify(c.Request.Context(), req.Email, req.Code)
	if errors.Is(err, otp.ErrCodeInvalid) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
		return
	}
	if err != nil {
		h.log.Error("verify: code check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.log.Error("verify: user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if user == nil {
		if !pending.Signup {
			// account deleted between login request and verify
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found. Please sign up first.",
			})
			return
		}

		user, err = h.users.Create(c.Request.Context(), req.Email, pending.Name)
		if err != nil {
			h.log.Error("verify: user creation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	if err := h.startSession(c, user.ID); err != nil {
		h.log.Error("verify: failed to start session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": principalOf(user)})
}
