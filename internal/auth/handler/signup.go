package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/otp"
)

type signupRequest struct {
	Email string  `json:"email" binding:"required,email"`
	Name  *string `json:"name"`
}

// Signup starts email verification for a new account. The account itself
// is only created once the code is verified.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	existing, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.log.Error("signup: user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "User with this email already exists",
		})
		return
	}

	err = h.codes.Issue(c.Request.Context(), req.Email, otp.Pending{
		Signup: true,
		Name:   req.Name,
	})
	if err != nil {
		h.log.Error("signup: failed to issue code", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Verification email sent. Please check your inbox.",
		"email":   req.Email,
	})
}
