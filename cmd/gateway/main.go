// Command gateway runs the public entry point that routes requests to the
// users and orders services.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/99minutos/order-platform/internal/gateway"
	"github.com/99minutos/order-platform/internal/infrastructure/config"
	infrahttp "github.com/99minutos/order-platform/internal/infrastructure/http"
	"github.com/99minutos/order-platform/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadGateway(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "gateway"})

	gw, err := gateway.New(gateway.Options{
		UsersURL:        cfg.UsersURL,
		OrdersURL:       cfg.OrdersURL,
		UpstreamTimeout: cfg.UpstreamTimeout,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		ServeDocs:       cfg.ServeDocs,
	}, log)
	if err != nil {
		return err
	}

	e := infrahttp.NewRouter(infrahttp.RouterOptions{
		Service: "gateway",
		Log:     log,
		Checks:  gw.Checks(),
	})
	gw.Register(e)

	log.Info().
		Str("env", cfg.Env).
		Str("users_url", cfg.UsersURL).
		Str("orders_url", cfg.OrdersURL).
		Msg("gateway starting")
	return infrahttp.Serve(ctx, e, ":"+cfg.Port, log)
}
