package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joaquinllenado/quickquiz-backend/internal/middleware"
	"github.com/joaquinllenado/quickquiz-backend/internal/session"
)

// Me returns the authenticated principal. The required gate guarantees
// one is attached before this runs.
func (h *Handler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": principal})
}

// Logout deletes the session and clears the cookie. Store deletion is
// best-effort; the cookie is cleared either way.
func (h *Handler) Logout(c *gin.Context) {
	if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(c.Request.Context(), cookie.Value); err != nil {
			h.log.Warn("logout: failed to delete session", "error", err)
		}
	}

	session.ClearCookie(c.Writer, h.cookieOpts)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
