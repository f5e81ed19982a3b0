// Package gateway is the single public entry point of the platform. It owns a
// static route table and forwards matched requests to the users and orders
// services, which remain the authority on authentication and authorization.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	apimw "github.com/99minutos/order-platform/internal/api/middleware"
	_ "github.com/99minutos/order-platform/internal/gateway/docs" // registers the OpenAPI document
	"github.com/99minutos/order-platform/internal/infrastructure/http/handlers"
)

const rateLimitExpiry = 3 * time.Minute

// Options configures a Gateway.
type Options struct {
	UsersURL        string
	OrdersURL       string
	UpstreamTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	ServeDocs       bool
}

type Gateway struct {
	opts      Options
	forwarder *Forwarder
	log       zerolog.Logger
}

func New(opts Options, log zerolog.Logger) (*Gateway, error) {
	fwd, err := NewForwarder(map[string]string{
		ServiceUsers:  opts.UsersURL,
		ServiceOrders: opts.OrdersURL,
	}, opts.UpstreamTimeout, log)
	if err != nil {
		return nil, err
	}
	return &Gateway{opts: opts, forwarder: fwd, log: log}, nil
}

// Checks returns readiness probes for both upstreams.
func (g *Gateway) Checks() []handlers.Check {
	return []handlers.Check{
		{Name: ServiceUsers, Probe: func(ctx context.Context) error { return g.forwarder.Probe(ctx, ServiceUsers) }},
		{Name: ServiceOrders, Probe: func(ctx context.Context) error { return g.forwarder.Probe(ctx, ServiceOrders) }},
	}
}

// Register mounts rate limiting, the route table and the API docs on e.
func (g *Gateway) Register(e *echo.Echo) {
	if g.opts.RateLimitRPS > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool {
				return !strings.HasPrefix(c.Path(), "/v1/")
			},
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(g.opts.RateLimitRPS),
				Burst:     g.opts.RateLimitBurst,
				ExpiresIn: rateLimitExpiry,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
		}))
	}

	for _, rt := range Routes {
		var mws []echo.MiddlewareFunc
		if rt.Protected {
			mws = append(mws, apimw.RequireBearer())
		}
		e.Add(rt.Method, rt.Path, g.forwarder.Handler(rt), mws...)
	}

	if g.opts.ServeDocs {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
	g.log.Info().Int("routes", len(Routes)).Bool("docs", g.opts.ServeDocs).Msg("gateway routes registered")
}
