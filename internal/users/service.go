package users

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/joaquinllenado/quickquiz-backend/internal/db"
)

type User struct {
	ID            string
	Email         string
	Name          *string
	EmailVerified bool
	CreatedAt     time.Time
}

// Service owns user rows. Email matching is case-insensitive everywhere,
// enforced by the users_email_lower_unique index.
type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

// FindByEmail returns (nil, nil) when no user has the email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, email_verified, created_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email))
}

// FindByID returns (nil, nil) when no user has the id.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, email, name, email_verified, created_at
		FROM users
		WHERE id = $1
	`, id))
}

// Create inserts a verified user. Callers only reach this after the email
// has been proven via an OTP code or an OIDC id_token.
func (s *Service) Create(ctx context.Context, email string, name *string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, email_verified)
		VALUES ($1, $2, true)
		RETURNING id, email, name, email_verified, created_at
	`, email, name)

	u, err := s.scanOne(row)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) scanOne(row *sql.Row) (*User, error) {
	var (
		u    User
		id   uuid.UUID
		name sql.NullString
	)

	err := row.Scan(&id, &u.Email, &name, &u.EmailVerified, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	u.ID = id.String()
	if name.Valid {
		u.Name = &name.String
	}

	return &u, nil
}
