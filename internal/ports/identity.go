package ports

import (
	"context"
	"time"

	"github.com/tasktrail/core/internal/domain/entities"
)

// Session is an authenticated identity-service session: the opaque token
// presented on record-service calls plus the resolved user profile.
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	User      entities.User `json:"user"`
}

// IsExpired reports whether the session has passed its expiry. Sessions
// without an expiry never expire client-side.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Credentials are what the login view collects.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupInput is what the registration view collects.
type SignupInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// IdentityClient is the consumed identity-service contract. The hosted
// service owns credential storage and session issuance; this side only
// supplies credentials and reports success or failure.
type IdentityClient interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	Signup(ctx context.Context, input SignupInput) (*Session, error)
	Logout(ctx context.Context, token string) error
}
