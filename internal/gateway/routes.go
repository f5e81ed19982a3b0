package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// Upstream service names.
const (
	ServiceUsers  = "users"
	ServiceOrders = "orders"
)

// Route maps one external endpoint onto a downstream service.
type Route struct {
	Method    string
	Path      string // external, echo syntax
	Service   string
	Upstream  string // internal path; :params are filled from the external match
	Protected bool
}

// Routes is the static routing table. It never changes at runtime.
var Routes = []Route{
	{http.MethodPost, "/v1/users/register", ServiceUsers, "/v1/auth/register", false},
	{http.MethodPost, "/v1/users/login", ServiceUsers, "/v1/auth/login", false},
	{http.MethodGet, "/v1/users/me", ServiceUsers, "/v1/users/me", true},
	{http.MethodPut, "/v1/users/me", ServiceUsers, "/v1/users/me", true},
	{http.MethodGet, "/v1/users/all", ServiceUsers, "/v1/users", true},

	{http.MethodPost, "/v1/orders/create", ServiceOrders, "/v1/orders", true},
	{http.MethodGet, "/v1/orders/my", ServiceOrders, "/v1/orders", true},
	{http.MethodGet, "/v1/orders/:id", ServiceOrders, "/v1/orders/:id", true},
	{http.MethodPut, "/v1/orders/:id/status", ServiceOrders, "/v1/orders/:id/status", true},
	{http.MethodPut, "/v1/orders/:id/items", ServiceOrders, "/v1/orders/:id/items", true},
	{http.MethodDelete, "/v1/orders/:id", ServiceOrders, "/v1/orders/:id", true},
}

// upstreamPath fills the route's internal path with the parameters of the
// current request. It returns the decoded path and its escaped form, ready for
// url.URL.Path and url.URL.RawPath.
func (r Route) upstreamPath(c echo.Context) (string, string) {
	if !strings.Contains(r.Upstream, ":") {
		return r.Upstream, ""
	}
	// Echo matches on RawPath when the request carries one, and then leaves
	// parameter values escaped.
	escaped := c.Request().URL.RawPath != ""

	decoded := strings.Split(r.Upstream, "/")
	encoded := strings.Split(r.Upstream, "/")
	for i, seg := range decoded {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		v := c.Param(seg[1:])
		if escaped {
			if u, err := url.PathUnescape(v); err == nil {
				v = u
			}
		}
		decoded[i] = v
		encoded[i] = url.PathEscape(v)
	}
	return strings.Join(decoded, "/"), strings.Join(encoded, "/")
}
