// Package sharing resolves share codes and manages cipher collaborator
// membership.
package sharing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnknownCode is returned when no cipher matches the share code
	ErrUnknownCode = errors.New("unknown share code")
	// ErrAlreadyCollaborator is returned when the caller is already a member
	ErrAlreadyCollaborator = errors.New("already a collaborator")
	// ErrCipherNotFound is returned when the cipher does not exist
	ErrCipherNotFound = errors.New("cipher not found")
)

// Service manages share codes and collaborator membership
type Service struct {
	db *sql.DB
}

// NewService creates a sharing service
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// JoinResult reports a successful join
type JoinResult struct {
	Success  bool   `json:"success"`
	CipherID string `json:"cipher_id"`
	Title    string `json:"title"`
}

// JoinByCode adds the caller to the collaborator set of the cipher the
// share code resolves to. Joining a cipher the caller already collaborates
// on is a conflict and performs no write.
func (s *Service) JoinByCode(ctx context.Context, callerUID, shareCode string) (*JoinResult, error) {
	var cipherID, title string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, title FROM ciphers WHERE share_code = $1", shareCode,
	).Scan(&cipherID, &title)
	if err == sql.ErrNoRows {
		return nil, ErrUnknownCode
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve share code: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cipher_collaborators (cipher_id, user_uid)
		VALUES ($1, $2)
		ON CONFLICT (cipher_id, user_uid) DO NOTHING
	`, cipherID, callerUID)
	if err != nil {
		return nil, fmt.Errorf("failed to add collaborator: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlreadyCollaborator
	}

	return &JoinResult{Success: true, CipherID: cipherID, Title: title}, nil
}

// EnableSharing assigns a share code to a cipher if it has none and
// returns the active code
func (s *Service) EnableSharing(ctx context.Context, cipherID string) (string, error) {
	code := uuid.NewString()

	var active string
	err := s.db.QueryRowContext(ctx, `
		UPDATE ciphers
		SET share_code = COALESCE(share_code, $1)
		WHERE id = $2
		RETURNING share_code
	`, code, cipherID).Scan(&active)
	if err == sql.ErrNoRows {
		return "", ErrCipherNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to enable sharing: %w", err)
	}

	return active, nil
}
