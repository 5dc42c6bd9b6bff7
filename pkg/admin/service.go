// Package admin manages the admin claim on user accounts: admin-gated
// grant/revoke plus a secret-gated first-admin bootstrap.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cipherhub/cipherhub/pkg/auth"
)

var (
	// ErrNotFound is returned when no user matches the email or uid
	ErrNotFound = errors.New("user not found")
	// ErrInvalidSecret is returned when the bootstrap secret does not match
	ErrInvalidSecret = errors.New("invalid secret")
)

// Service performs admin claim mutations
type Service struct {
	db              *sql.DB
	bootstrapSecret string
	verifier        *auth.TokenVerifier
}

// NewService creates the admin service. verifier may be nil; when present
// its token cache is flushed after claim changes so stale admin bits don't
// linger.
func NewService(db *sql.DB, bootstrapSecret string, verifier *auth.TokenVerifier) *Service {
	return &Service{db: db, bootstrapSecret: bootstrapSecret, verifier: verifier}
}

// GrantResult reports a claim change
type GrantResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UID     string `json:"uid,omitempty"`
}

// GrantAdmin sets the admin claim for a user addressed by email or uid.
// The caller's own admin privilege is enforced at the transport layer.
func (s *Service) GrantAdmin(ctx context.Context, email, uid string) (*GrantResult, error) {
	return s.setAdmin(ctx, email, uid, true)
}

// RevokeAdmin clears the admin claim for a user addressed by uid
func (s *Service) RevokeAdmin(ctx context.Context, uid string) (*GrantResult, error) {
	res, err := s.setAdmin(ctx, "", uid, false)
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("Admin role revoked from user %s", res.UID)
	return res, nil
}

// BootstrapFirstAdmin grants the first admin, gated only by exact equality
// with the configured shared secret. An empty configured secret disables
// the endpoint.
func (s *Service) BootstrapFirstAdmin(ctx context.Context, email, secret string) (*GrantResult, error) {
	if s.bootstrapSecret == "" || secret != s.bootstrapSecret {
		return nil, ErrInvalidSecret
	}

	res, err := s.setAdmin(ctx, email, "", true)
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("First admin granted to %s", email)
	return res, nil
}

func (s *Service) setAdmin(ctx context.Context, email, uid string, isAdmin bool) (*GrantResult, error) {
	if uid == "" {
		err := s.db.QueryRowContext(ctx,
			"SELECT uid FROM users WHERE email = $1", email,
		).Scan(&uid)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user by email: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_admin = $1 WHERE uid = $2", isAdmin, uid,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update admin claim: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	if s.verifier != nil {
		s.verifier.Flush()
	}

	return &GrantResult{
		Success: true,
		Message: fmt.Sprintf("Admin role granted to user %s", uid),
		UID:     uid,
	}, nil
}
