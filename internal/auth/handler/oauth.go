package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OAuthLogin redirects the client to the provider's consent page with
// fresh state and PKCE material bound to cookies.
func (h *Handler) OAuthLogin(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown oauth provider"})
		return
	}

	state := generateState(c)
	_, codeChallenge := generatePKCE(c)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

// OAuthCallback completes the provider flow: state check, code exchange,
// identity resolution, session start.
func (h *Handler) OAuthCallback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown oauth provider"})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		// The user declined consent or the provider refused; send them
		// back to start over rather than surfacing a provider error.
		h.log.Warn("oauth callback returned error",
			"provider", providerName,
			"error", errParam,
			"description", c.Query("error_description"),
		)
		c.Redirect(http.StatusFound, "/auth/oauth/"+providerName)
		return
	}

	code := c.Query("code")
	if code == "" {
		h.log.Error("oauth callback missing code and error", "provider", providerName)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing pkce verifier"})
		return
	}

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		h.log.Warn("oauth code exchange failed",
			"provider", providerName,
			"error", err,
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	userID, err := h.resolver.Resolve(c.Request.Context(), identity)
	if err != nil {
		h.log.Error("oauth: failed to resolve user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		h.log.Error("oauth: resolved user missing", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		h.log.Error("oauth: failed to start session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	h.log.Info("oauth login succeeded",
		"provider", providerName,
		"user_id", user.ID,
		"ip", c.ClientIP(),
	)

	c.JSON(http.StatusOK, gin.H{"user": principalOf(user)})
}
