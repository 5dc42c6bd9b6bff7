// Package auth provides bearer token verification against the user store.
//
// Tokens are opaque: the store keeps only a SHA-256 hash, and verified
// lookups are cached in a bounded LRU so hot tokens skip the database.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrInvalidToken is returned when a token matches no user
var ErrInvalidToken = errors.New("invalid token")

const tokenCacheSize = 1024

// TokenVerifier resolves bearer tokens to users
type TokenVerifier struct {
	db    *sql.DB
	cache *lru.Cache[string, *User]
}

// NewTokenVerifier creates a verifier with a bounded token cache
func NewTokenVerifier(db *sql.DB) (*TokenVerifier, error) {
	cache, err := lru.New[string, *User](tokenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cache: %w", err)
	}
	return &TokenVerifier{db: db, cache: cache}, nil
}

// HashToken computes the SHA-256 hash of a token for lookup
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Verify resolves a bearer token to its user, or ErrInvalidToken
func (v *TokenVerifier) Verify(ctx context.Context, token string) (*User, error) {
	hash := HashToken(token)

	if user, ok := v.cache.Get(hash); ok {
		return user, nil
	}

	user := &User{}
	err := v.db.QueryRowContext(ctx,
		"SELECT uid, email, is_admin, created_at FROM users WHERE token_hash = $1",
		hash,
	).Scan(&user.UID, &user.Email, &user.IsAdmin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	v.cache.Add(hash, user)
	return user, nil
}

// Invalidate drops a user's cached token entry after a claim change
func (v *TokenVerifier) Invalidate(tokenHash string) {
	v.cache.Remove(tokenHash)
}

// Flush clears the whole token cache. Claim changes made by admin
// endpoints call this so stale admin bits don't outlive the grant.
func (v *TokenVerifier) Flush() {
	v.cache.Purge()
}
