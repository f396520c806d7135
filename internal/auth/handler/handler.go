package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth/otp"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/provider"
	"github.com/joaquinllenado/quickquiz-backend/internal/auth/resolver"
	"github.com/joaquinllenado/quickquiz-backend/internal/middleware"
	"github.com/joaquinllenado/quickquiz-backend/internal/session"
	"github.com/joaquinllenado/quickquiz-backend/internal/users"
)

// UserDirectory is the slice of the users service the auth routes need.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	FindByID(ctx context.Context, id string) (*users.User, error)
	Create(ctx context.Context, email string, name *string) (*users.User, error)
}

// CodeService issues and verifies email sign-in codes.
type CodeService interface {
	Issue(ctx context.Context, email string, p otp.Pending) error
	Verify(ctx context.Context, email, code string) (*otp.Pending, error)
}

type Deps struct {
	Providers *provider.Registry
	Sessions  session.Store
	Resolver  resolver.Resolver
	Users     UserDirectory
	Codes     CodeService
	Log       *slog.Logger

	SessionTTL    time.Duration
	SecureCookies bool
}

type Handler struct {
	providers  *provider.Registry
	sessions   session.Store
	resolver   resolver.Resolver
	users      UserDirectory
	codes      CodeService
	log        *slog.Logger
	sessionTTL time.Duration
	cookieOpts session.CookieOptions
}

func New(deps Deps) *Handler {
	return &Handler{
		providers:  deps.Providers,
		sessions:   deps.Sessions,
		resolver:   deps.Resolver,
		users:      deps.Users,
		codes:      deps.Codes,
		log:        deps.Log,
		sessionTTL: deps.SessionTTL,
		cookieOpts: session.CookieOptions{
			Secure:   deps.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	grp := r.Group("/auth")

	grp.POST("/signup", h.Signup)
	grp.POST("/login", h.Login)
	grp.POST("/verify", h.Verify)

	grp.GET("/me", auth.RequireAuth(), h.Me)
	grp.POST("/logout", auth.RequireAuth(), h.Logout)

	grp.GET("/oauth/:provider", h.OAuthLogin)
	grp.GET("/callback/:provider", h.OAuthCallback)
}

// startSession mints a session for the user and sets the session cookie.
func (h *Handler) startSession(c *gin.Context, userID string) error {
	token, err := session.GenerateToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(h.sessionTTL)

	if err := h.sessions.Create(c.Request.Context(), session.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	session.SetCookie(c.Writer, token, expiresAt, h.cookieOpts)
	return nil
}

func principalOf(u *users.User) middleware.Principal {
	return middleware.Principal{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}
