package resolver

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/joaquinllenado/quickquiz-backend/internal/auth"
	"github.com/joaquinllenado/quickquiz-backend/internal/db"
)

// DBResolver resolves identities against the users and identities
// tables: exact identity match first, then linking by email, then user
// creation.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (string, error) {
	if identity == nil {
		return "", errors.New("identity is nil")
	}

	// 1. Identity lookup (provider + provider_user_id)
	var userID uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM identities
		WHERE provider = $1
		  AND provider_user_id = $2
	`,
		identity.Provider,
		identity.ProviderUserID,
	).Scan(&userID)

	if err == nil {
		return userID.String(), nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// 2. Email-based linking (existing user, new provider)
	err = r.db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`,
		identity.Email,
	).Scan(&userID)

	if err == nil {
		if err := r.linkIdentity(ctx, userID, identity); err != nil {
			return "", err
		}
		return userID.String(), nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// 3. New user
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, email_verified)
		VALUES ($1, $2, $3)
		RETURNING id
	`,
		identity.Email,
		identity.Name,
		identity.EmailVerified,
	).Scan(&userID)

	if err != nil {
		return "", err
	}

	if err := r.linkIdentity(ctx, userID, identity); err != nil {
		return "", err
	}

	return userID.String(), nil
}

func (r *DBResolver) linkIdentity(
	ctx context.Context,
	userID uuid.UUID,
	identity *auth.Identity,
) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`,
		userID,
		identity.Provider,
		identity.ProviderUserID,
	)
	return err
}
