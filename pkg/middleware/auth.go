// Package middleware provides authentication middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cipherhub/cipherhub/pkg/auth"
	"github.com/cipherhub/cipherhub/pkg/httputil"
)

type contextKey string

// authKey holds *auth.AuthContext in the request context
const authKey contextKey = "auth_context"

// AuthMiddleware authenticates requests via bearer tokens
type AuthMiddleware struct {
	verifier *auth.TokenVerifier
}

// NewAuthMiddleware creates authentication middleware
func NewAuthMiddleware(verifier *auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth wraps a handler, rejecting unauthenticated requests
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteUnauthenticated(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthenticated(w, "invalid authorization header format")
			return
		}

		user, err := m.verifier.Verify(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthenticated(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authKey, &auth.AuthContext{User: user})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin wraps a handler, rejecting callers without the admin claim.
// Unauthenticated callers get 401; authenticated non-admins get 403 with
// no state change.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetAuthContext(r).IsAdmin() {
			httputil.WritePermissionDenied(w, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// GetAuthContext extracts the auth context from a request, or nil
func GetAuthContext(r *http.Request) *auth.AuthContext {
	if ctx, ok := r.Context().Value(authKey).(*auth.AuthContext); ok {
		return ctx
	}
	return nil
}
