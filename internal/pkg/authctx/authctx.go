// Package authctx carries verified token claims through a request context.
package authctx

import (
	"context"

	"github.com/shopline/commerce-api/internal/core/domain"
)

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims domain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims stored by WithClaims.
func FromContext(ctx context.Context) (domain.Claims, bool) {
	if ctx == nil {
		return domain.Claims{}, false
	}
	claims, ok := ctx.Value(claimsKey{}).(domain.Claims)
	return claims, ok
}
