package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/core/domain"
)

type stubValidator struct {
	principals map[string]domain.Principal
	expired    map[string]bool
	calls      int
}

func (v *stubValidator) Validate(token string) (domain.Principal, error) {
	v.calls++
	if v.expired[token] {
		return domain.Principal{}, domain.ErrExpiredToken
	}
	p, ok := v.principals[token]
	if !ok {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return p, nil
}

func newStubValidator() *stubValidator {
	return &stubValidator{
		principals: map[string]domain.Principal{
			"good":  {UserID: "alice", Roles: []string{domain.RoleClient}},
			"admin": {UserID: "root", Roles: []string{domain.RoleAdmin}},
		},
		expired: map[string]bool{"old": true},
	}
}

func newAuthContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthenticate_ValidToken(t *testing.T) {
	c, rec := newAuthContext("Bearer good")

	called := false
	handler := Authenticate(newStubValidator(), zerolog.Nop())(func(c echo.Context) error {
		called = true
		p, ok := PrincipalFrom(c)
		if !ok {
			t.Fatalf("principal not set")
		}
		if p.UserID != "alice" {
			t.Fatalf("expected alice, got %s", p.UserID)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthenticate_SchemeIsCaseInsensitive(t *testing.T) {
	c, _ := newAuthContext("bearer good")
	handler := Authenticate(newStubValidator(), zerolog.Nop())(func(c echo.Context) error { return nil })
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAuthenticate_UniformRejection(t *testing.T) {
	headers := map[string]string{
		"missing":      "",
		"wrong scheme": "Token good",
		"no token":     "Bearer ",
		"invalid":      "Bearer forged",
		"expired":      "Bearer old",
	}

	for name, header := range headers {
		c, _ := newAuthContext(header)
		handler := Authenticate(newStubValidator(), zerolog.Nop())(func(c echo.Context) error {
			t.Fatalf("%s: should not reach next", name)
			return nil
		})

		err := handler(c)
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Errorf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
		if _, ok := PrincipalFrom(c); ok {
			t.Errorf("%s: principal must not be set", name)
		}
	}
}

func TestAuthenticate_MalformedHeaderSkipsValidation(t *testing.T) {
	v := newStubValidator()
	c, _ := newAuthContext("Basic dXNlcjpwYXNz")
	_ = Authenticate(v, zerolog.Nop())(func(c echo.Context) error { return nil })(c)
	if v.calls != 0 {
		t.Fatalf("validator must not run for a malformed header, ran %d times", v.calls)
	}
}

func TestPrincipalFrom_Empty(t *testing.T) {
	c, _ := newAuthContext("")
	if _, ok := PrincipalFrom(c); ok {
		t.Fatal("expected no principal")
	}
	c.Set(principalKey, domain.Principal{})
	if _, ok := PrincipalFrom(c); ok {
		t.Fatal("a principal without subject must not count")
	}
}
