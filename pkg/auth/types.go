package auth

import "time"

// User represents an account
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthContext carries the authenticated caller through a request
type AuthContext struct {
	User *User
}

// IsAdmin reports whether the caller holds the admin claim
func (c *AuthContext) IsAdmin() bool {
	return c != nil && c.User != nil && c.User.IsAdmin
}
