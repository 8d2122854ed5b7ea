package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/core/ports"
	"github.com/shopline/commerce-api/internal/infrastructure/token"
	"github.com/shopline/commerce-api/internal/pkg/authctx"
	"github.com/shopline/commerce-api/internal/pkg/metrics"
)

// ClaimsKey is the echo.Context key holding the verified domain.Claims.
const ClaimsKey = "claims"

// Auth validates the bearer token and injects its claims into both the echo
// context and the request context. Every rejection is a generic 401.
func Auth(tokens ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return domain.ErrMissingToken
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			raw = strings.TrimSpace(raw)
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
				return domain.ErrUnauthorized
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				result := "invalid"
				if errors.Is(err, token.ErrExpired) {
					result = "expired"
				}
				metrics.TokenVerificationsTotal.WithLabelValues(result).Inc()
				return domain.ErrUnauthorized
			}
			metrics.TokenVerificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

			c.Set(ClaimsKey, *claims)
			c.SetRequest(c.Request().WithContext(authctx.WithClaims(c.Request().Context(), *claims)))

			return next(c)
		}
	}
}
