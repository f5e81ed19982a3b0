package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/order-platform/internal/api/middleware"
	"github.com/99minutos/order-platform/internal/core/domain"
)

// principal returns the caller injected by the Authenticate middleware. Its
// absence means the route was mounted outside the guarded group.
func principal(c echo.Context) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	return p, nil
}
