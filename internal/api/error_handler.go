package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/api/handler"
	"github.com/99minutos/order-platform/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and stable error code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the shared envelope: {"success":false,"data":null,"error":{...}}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = handler.Failure(c, status, code, msg)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string) {
	// Echo's own errors (router 404/405, rate limiter, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return resolveHTTPError(he)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, handler.CodeUnauthenticated, "authentication required"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, handler.CodeInvalidCredentials, "invalid email or password"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, handler.CodeForbidden, "access forbidden"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, handler.CodeNotFound, "order not found"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, handler.CodeNotFound, "user not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, handler.CodeInvalidInput, err.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, handler.CodeInvalidTransition, err.Error()
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, handler.CodeUserExists, "user already exists"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, handler.CodeServiceUnavailable, "service unavailable"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, handler.CodeUpstream, "upstream service error"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, handler.CodeInternal, "internal server error"
}

func resolveHTTPError(he *echo.HTTPError) (int, string, string) {
	msg := fmt.Sprintf("%v", he.Message)
	switch he.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return he.Code, handler.CodeInvalidInput, msg
	case http.StatusUnauthorized:
		return he.Code, handler.CodeUnauthenticated, "authentication required"
	case http.StatusForbidden:
		return he.Code, handler.CodeForbidden, "access forbidden"
	case http.StatusNotFound:
		return he.Code, handler.CodeNotFound, "resource not found"
	case http.StatusMethodNotAllowed:
		return he.Code, handler.CodeMethodNotAllowed, "method not allowed"
	case http.StatusTooManyRequests:
		return he.Code, handler.CodeRateLimited, "rate limit exceeded"
	case http.StatusServiceUnavailable:
		return he.Code, handler.CodeServiceUnavailable, "service unavailable"
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return he.Code, handler.CodeUpstream, "upstream service error"
	}
	if he.Code >= 500 {
		return he.Code, handler.CodeInternal, "internal server error"
	}
	return he.Code, handler.CodeInvalidInput, msg
}
