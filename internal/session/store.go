package session

import (
	"context"
	"time"
)

// User is the session owner's identity as fetched alongside the session.
// Name is nil when the user never set one.
type User struct {
	ID    string
	Email string
	Name  *string
}

// Session binds an opaque token to a user and an absolute expiry.
// Sessions are created at login and never mutated afterwards.
type Session struct {
	Token     string
	UserID    string    // references users.id
	ExpiresAt time.Time // absolute expiry time
	User      User      // owner, populated by Lookup
}

// Store defines how sessions are persisted and retrieved. Lookup returns
// (nil, nil) when no session matches the token; a non-nil error means the
// store itself failed.
type Store interface {
	Create(ctx context.Context, s Session) error
	Lookup(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
