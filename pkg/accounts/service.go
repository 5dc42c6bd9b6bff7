// Package accounts handles user registration and per-user bootstrap.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/cipherhub/cipherhub/pkg/auth"
	"github.com/cipherhub/cipherhub/pkg/observability"
)

// ErrEmailTaken is returned when the email is already registered
var ErrEmailTaken = errors.New("email already registered")

// Service manages user accounts
type Service struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewService creates an accounts service
func NewService(db *sql.DB, logger *observability.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Register creates a user account and runs the post-creation bootstrap.
// The token is stored hashed; the caller keeps the plaintext.
func (s *Service) Register(ctx context.Context, uid, email, token string) (*auth.User, error) {
	var user auth.User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (uid, email, is_admin, token_hash)
		VALUES ($1, $2, FALSE, $3)
		RETURNING uid, email, is_admin, created_at
	`, uid, email, auth.HashToken(token)).Scan(&user.UID, &user.Email, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.OnAccountCreated(ctx, user.UID, user.Email)

	return &user, nil
}

// OnAccountCreated seeds the profile row for a new account. Bootstrap
// failures are logged and swallowed: account creation must not fail
// because the profile write did.
func (s *Service) OnAccountCreated(ctx context.Context, uid, email string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (uid, display_name)
		VALUES ($1, split_part($2, '@', 1))
		ON CONFLICT (uid) DO NOTHING
	`, uid, email)
	if err != nil {
		s.logger.WithError(err).WithField("uid", uid).
			Warn("account bootstrap failed, continuing")
	}
}
