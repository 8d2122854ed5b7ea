package ports

import (
	"context"

	"github.com/shopline/commerce-api/internal/core/domain"
)

// IdentityStore is the persistence contract the auth flows depend on.
//
// Implementations must enforce email and role-name uniqueness at the storage
// level and report a violation on Create as domain.ErrUserExists.
type IdentityStore interface {
	// FindByEmail returns the user with its Role populated, or domain.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create persists user and returns it with ID and timestamps assigned.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindRoleByName returns the role, or domain.ErrRoleNotFound.
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)
	// UpsertRole returns the role named name, creating it when absent.
	UpsertRole(ctx context.Context, name string) (*domain.Role, error)
}
