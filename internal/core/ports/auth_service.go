package ports

import (
	"context"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

// AuthResult is the login-shaped payload returned by both login and registration.
type AuthResult struct {
	Token string
	User  *domain.User
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context, limit int) ([]*domain.User, error)
}

// TokenVerifier validates a bearer token and returns the identity it carries.
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}
