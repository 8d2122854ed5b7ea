package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shopline/commerce-api/internal/core/domain"
	"github.com/shopline/commerce-api/internal/pkg/authctx"
)

// ctxClaims returns the claims injected by the Auth middleware. Their absence
// means the route was mounted without the middleware.
func ctxClaims(c echo.Context) (domain.Claims, error) {
	claims, ok := authctx.FromContext(c.Request().Context())
	if !ok || claims.Subject == "" {
		return domain.Claims{}, domain.ErrUnauthorized
	}
	return claims, nil
}

// bindAndValidate decodes the request into dst and runs the registered validator.
// Both failures surface as 400s.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
