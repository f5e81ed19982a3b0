package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/api"
	"github.com/99minutos/order-platform/internal/api/handler"
	apimw "github.com/99minutos/order-platform/internal/api/middleware"
	"github.com/99minutos/order-platform/internal/infrastructure/http/handlers"
)

// RouterOptions configures the shared Echo instance.
type RouterOptions struct {
	// Service names the binary; it is the Prometheus subsystem of the HTTP metrics.
	Service string
	Log     zerolog.Logger
	// Checks back the readiness probe.
	Checks []handlers.Check
	// Registerer receives the HTTP metrics. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// NewRouter builds the Echo instance shared by every binary: recovery,
// request ids, structured request logs, Prometheus instrumentation, the
// envelope error handler and the health probes. Service routes are mounted by
// the caller.
func NewRouter(opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(opts.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(apimw.RequestLogger(opts.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  opts.Service,
		Registerer: opts.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
		DoNotUseRequestPathFor404: true,
	}))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler(opts.Service)
	readinessHandler := handlers.NewReadinessHandler(opts.Checks...)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
