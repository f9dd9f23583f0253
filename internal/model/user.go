package model

import (
	"time"

	"admin-console/internal/permission"
)

// User is the persisted account record. PasswordHash is never serialized;
// handlers return AuthUser instead.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	RoleID       int        `json:"role_id"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// Role bundles a named permission set. The seeded "admin" role carries the
// wildcard permission; nothing else in the system treats "admin" specially.
type Role struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Permissions permission.Set `json:"permissions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// AuthUser is the client-visible view of an account.
type AuthUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Identity is the principal resolved by the auth middleware and attached
// to the request context for downstream stages.
type Identity struct {
	UserID string
}

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      AuthUser  `json:"user"`
}
