package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/api/metrics"
	"github.com/99minutos/order-platform/internal/core/domain"
	"github.com/99minutos/order-platform/internal/core/ports"
)

const principalKey = "principal"

// Authenticate validates the bearer token and stores the resulting principal
// in the echo context. Every failure is reported as domain.ErrUnauthenticated;
// the specific reason only reaches metrics and debug logs.
func Authenticate(tokens ports.TokenValidator, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, reason := bearerToken(c)
			if reason != "" {
				return reject(c, log, reason)
			}

			p, err := tokens.Validate(raw)
			if err != nil {
				if errors.Is(err, domain.ErrExpiredToken) {
					return reject(c, log, "expired_token")
				}
				return reject(c, log, "invalid_token")
			}

			WithPrincipal(c, p)
			return next(c)
		}
	}
}

// WithPrincipal stores p as the authenticated caller of the request.
func WithPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok && p.UserID != ""
}

// bearerToken extracts the token from "Authorization: Bearer <token>". A
// non-empty reason means the header is absent or malformed.
func bearerToken(c echo.Context) (token, reason string) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", "missing_header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", "malformed_header"
	}
	return token, ""
}

func reject(c echo.Context, log zerolog.Logger, reason string) error {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	log.Debug().
		Str("reason", reason).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("authentication rejected")
	return domain.ErrUnauthenticated
}
