package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopline/commerce-api/internal/core/ports"
)

// EnsureRoles provisions the named roles, leaving existing ones untouched.
func EnsureRoles(ctx context.Context, store ports.IdentityStore, log zerolog.Logger, names ...string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		role, err := store.UpsertRole(ctx, name)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
		log.Debug().Str("role", role.Name).Str("role_id", role.ID).Msg("role provisioned")
	}
	return nil
}
