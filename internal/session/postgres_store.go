package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/joaquinllenado/quickquiz-backend/internal/db"
)

// PostgresStore persists sessions in the user_sessions table.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	if sess.Token == "" || sess.UserID == "" {
		return fmt.Errorf("session: missing token or user_id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_sessions (session_token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`,
		sess.Token,
		sess.UserID,
		sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("session: failed to create: %w", err)
	}

	return nil
}

// Lookup fetches the session and its owning user in a single query.
// Expiry is not evaluated here; callers decide what "live" means.
func (s *PostgresStore) Lookup(ctx context.Context, token string) (*Session, error) {
	var (
		sess   Session
		userID uuid.UUID
		name   sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT s.session_token, s.expires_at, u.id, u.email, u.name
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token = $1
	`, token).Scan(
		&sess.Token,
		&sess.ExpiresAt,
		&userID,
		&sess.User.Email,
		&name,
	)

	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	sess.UserID = userID.String()
	sess.User.ID = sess.UserID
	if name.Valid {
		sess.User.Name = &name.String
	}

	return &sess, nil
}

func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM user_sessions
		WHERE session_token = $1
	`, token)
	return err
}
