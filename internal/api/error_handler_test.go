package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/api/handler"
	"github.com/99minutos/order-platform/internal/core/domain"
)

func renderError(t *testing.T, err error) (int, handler.Envelope) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var env handler.Envelope
	if jerr := json.Unmarshal(rec.Body.Bytes(), &env); jerr != nil {
		t.Fatalf("invalid json: %v", jerr)
	}
	return rec.Code, env
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrUnauthenticated, 401, "UNAUTHENTICATED"},
		{domain.ErrInvalidToken, 401, "UNAUTHENTICATED"},
		{domain.ErrExpiredToken, 401, "UNAUTHENTICATED"},
		{domain.ErrInvalidCredentials, 401, "INVALID_CREDENTIALS"},
		{domain.ErrForbidden, 403, "FORBIDDEN"},
		{domain.ErrOrderNotFound, 404, "NOT_FOUND"},
		{domain.ErrUserNotFound, 404, "NOT_FOUND"},
		{fmt.Errorf("%w: amount must be at least 1", domain.ErrInvalidInput), 400, "INVALID_INPUT"},
		{fmt.Errorf("%w: CREATED to COMPLETED", domain.ErrInvalidTransition), 409, "INVALID_TRANSITION"},
		{domain.ErrUserExists, 409, "USER_ALREADY_EXISTS"},
		{domain.ErrServiceUnavailable, 503, "SERVICE_UNAVAILABLE"},
		{domain.ErrUpstream, 502, "UPSTREAM_ERROR"},
		{echo.ErrNotFound, 404, "NOT_FOUND"},
		{echo.ErrMethodNotAllowed, 405, "METHOD_NOT_ALLOWED"},
		{echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), 429, "RATE_LIMITED"},
	}

	for _, tt := range tests {
		status, env := renderError(t, tt.err)
		if status != tt.status {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.status, status)
		}
		if env.Success || env.Data != nil || env.Error == nil {
			t.Errorf("%v: malformed envelope %+v", tt.err, env)
			continue
		}
		if env.Error.Code != tt.code {
			t.Errorf("%v: expected code %s, got %s", tt.err, tt.code, env.Error.Code)
		}
	}
}

func TestHTTPErrorHandler_ValidationMessageIsKept(t *testing.T) {
	_, env := renderError(t, fmt.Errorf("%w: items[0].amount must be greater than 0", domain.ErrInvalidInput))
	if !strings.Contains(env.Error.Message, "items[0].amount") {
		t.Fatalf("expected field name in message, got %q", env.Error.Message)
	}
}

func TestHTTPErrorHandler_UnexpectedErrorIsHidden(t *testing.T) {
	status, env := renderError(t, errors.New("mongo: connection refused at 10.0.0.7:27017"))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if env.Error.Code != "INTERNAL_ERROR" || strings.Contains(env.Error.Message, "mongo") {
		t.Fatalf("internal details leaked: %+v", env.Error)
	}
}
