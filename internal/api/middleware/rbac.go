package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/order-platform/internal/core/domain"
)

// Authorize returns domain.ErrForbidden unless p holds role. Admin satisfies
// every role.
func Authorize(p domain.Principal, role string) error {
	if !p.HasRole(role) {
		return domain.ErrForbidden
	}
	return nil
}

// RequireRole enforces role-based access control. It must run after
// Authenticate; a request without a principal is unauthenticated.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if err := Authorize(p, role); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// RequireBearer rejects requests without a well-formed bearer header. It does
// not validate the token; the gateway uses it to fail fast before forwarding.
func RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, reason := bearerToken(c); reason != "" {
				return domain.ErrUnauthenticated
			}
			return next(c)
		}
	}
}
