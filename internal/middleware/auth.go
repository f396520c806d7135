package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joaquinllenado/quickquiz-backend/internal/session"
)

const bearerPrefix = "Bearer "

var (
	// ErrNoToken means the request carried no session token at all.
	ErrNoToken = errors.New("no session token")
	// ErrInvalidSession means a token was presented but no live session
	// matches it (unknown token or expired session).
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Principal is the authenticated identity attached to a request.
// Name is omitted from JSON when the user has none.
type Principal struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// unexported, collision-proof context key
type principalContextKeyType struct{}

var principalKey = principalContextKeyType{}

// PrincipalFromContext extracts the authenticated principal from context.
// A missing principal means the request is anonymous.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying the given principal. Exposed
// for handler tests; request paths go through the gates below.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

type AuthMiddleware struct {
	store session.Store
	log   *slog.Logger
}

func NewAuthMiddleware(store session.Store, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{store: store, log: log}
}

// extractToken pulls the candidate session token from the request.
// The session cookie takes precedence over the Authorization header;
// existing clients may send both and the cookie is the one they rotate.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), bearerPrefix)
}

// authenticate runs extraction and validation for both gates so the
// expiry rule cannot diverge between them. Outcomes:
//
//	(principal, nil)            authenticated
//	(nil, ErrNoToken)           no credential presented
//	(nil, ErrInvalidSession)    token presented, no live session
//	(nil, other)                session store failure
func (a *AuthMiddleware) authenticate(ctx context.Context, r *http.Request) (*Principal, error) {
	token := extractToken(r)
	if token == "" {
		return nil, ErrNoToken
	}

	sess, err := a.store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	// A session is live only while expires_at is strictly in the
	// future; expires_at == now is already expired.
	if sess == nil || !sess.ExpiresAt.After(time.Now()) {
		return nil, ErrInvalidSession
	}

	return &Principal{
		ID:    sess.User.ID,
		Email: sess.User.Email,
		Name:  sess.User.Name,
	}, nil
}

// RequireAuth rejects the request unless it carries a live session.
// The downstream handler is never invoked on rejection.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.authenticate(c.Request.Context(), c.Request)

		switch {
		case err == nil:
			ctx := WithPrincipal(c.Request.Context(), *principal)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		case errors.Is(err, ErrNoToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
		case errors.Is(err, ErrInvalidSession):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired session",
			})
		default:
			a.log.Error("auth middleware: session lookup failed",
				"error", err,
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	}
}

// OptionalAuth attaches the principal when the request carries a live
// session and continues regardless of outcome. Store failures are
// absorbed here: auth on these routes is advisory and an outage must not
// block the request, at the cost of serving such traffic anonymously.
func (a *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := a.authenticate(c.Request.Context(), c.Request)

		switch {
		case err == nil:
			ctx := WithPrincipal(c.Request.Context(), *principal)
			c.Request = c.Request.WithContext(ctx)
		case errors.Is(err, ErrNoToken), errors.Is(err, ErrInvalidSession):
			// anonymous request
		default:
			a.log.Warn("auth middleware: session lookup failed, continuing anonymously",
				"error", err,
			)
		}

		c.Next()
	}
}
