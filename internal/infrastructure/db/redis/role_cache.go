package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/core/ports"
	"github.com/shopline/commerce-api/internal/pkg/metrics"
)

const defaultRoleTTL = 10 * time.Minute

// RoleCache decorates an IdentityStore with a Redis read-through cache for
// role lookups. Key format: role:<name>
//
// Redis is never authoritative: every Redis failure falls back to the store.
type RoleCache struct {
	ports.IdentityStore
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRoleCache wraps store. A non-positive ttl selects defaultRoleTTL.
func NewRoleCache(store ports.IdentityStore, client *redis.Client, ttl time.Duration, log zerolog.Logger) *RoleCache {
	if ttl <= 0 {
		ttl = defaultRoleTTL
	}
	return &RoleCache{IdentityStore: store, client: client, ttl: ttl, log: log}
}

func (c *RoleCache) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	raw, err := c.client.Get(ctx, c.key(name)).Bytes()
	switch {
	case err == nil:
		var role domain.Role
		if jsonErr := json.Unmarshal(raw, &role); jsonErr == nil {
			metrics.RoleCacheTotal.WithLabelValues("hit").Inc()
			return &role, nil
		}
		metrics.RoleCacheTotal.WithLabelValues("error").Inc()
		c.log.Warn().Str("role", name).Msg("discarding undecodable cached role")
	case errors.Is(err, redis.Nil):
		metrics.RoleCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.RoleCacheTotal.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("role", name).Msg("role cache unavailable, reading store")
	}

	role, err := c.IdentityStore.FindRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(ctx, role)
	return role, nil
}

// UpsertRole provisions the role in the store and refreshes its cache entry.
func (c *RoleCache) UpsertRole(ctx context.Context, name string) (*domain.Role, error) {
	role, err := c.IdentityStore.UpsertRole(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(ctx, role)
	return role, nil
}

// Ping reports Redis health for the readiness probe.
func (c *RoleCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *RoleCache) store(ctx context.Context, role *domain.Role) {
	raw, err := json.Marshal(role)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(role.Name), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("role", role.Name).Msg("role cache write failed")
	}
}

func (c *RoleCache) key(name string) string {
	return "role:" + name
}
