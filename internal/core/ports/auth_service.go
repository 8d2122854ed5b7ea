package ports

import (
	"context"
	"time"

	"github.com/shopline/commerce-api/internal/core/domain"
)

// RegisterInput carries an already-validated registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by Register and Login. User never carries a password hash.
type AuthResult struct {
	User        *domain.User
	AccessToken string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// CurrentUser re-reads the identity behind verified claims.
	CurrentUser(ctx context.Context, claims domain.Claims) (*domain.User, error)
	// LookupUser finds a user by email for administrative callers.
	LookupUser(ctx context.Context, email string) (*domain.User, error)
}

// PasswordHasher produces and checks salted one-way password digests.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*domain.Claims, error)
}

// TokenService issues and verifies signed access tokens.
type TokenService interface {
	TokenVerifier
	Issue(subject, email, role string, ttl time.Duration) (string, error)
}
