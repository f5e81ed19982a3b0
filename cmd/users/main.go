// Command users runs the users service: registration, login, profiles and
// token issuance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/99minutos/order-platform/internal/api"
	"github.com/99minutos/order-platform/internal/core/service"
	"github.com/99minutos/order-platform/internal/infrastructure/config"
	"github.com/99minutos/order-platform/internal/infrastructure/db/mongo"
	infrahttp "github.com/99minutos/order-platform/internal/infrastructure/http"
	"github.com/99minutos/order-platform/internal/infrastructure/http/handlers"
	"github.com/99minutos/order-platform/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "users: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadUsers(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "users"})

	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	userRepo := mongo.NewUserRepository(db)
	if err := mongo.EnsureIndexes(ctx, userRepo); err != nil {
		return err
	}

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret: []byte(cfg.JWT.Secret),
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		return err
	}
	users := service.NewUserService(userRepo, tokens, log, service.WithAdminEmails(cfg.AdminEmails))

	e := infrahttp.NewRouter(infrahttp.RouterOptions{
		Service: "users",
		Log:     log,
		Checks: []handlers.Check{
			{Name: "mongodb", Probe: func(ctx context.Context) error { return mongo.Ping(ctx, db) }},
		},
	})
	api.RegisterUserRoutes(e, users, tokens, tokens.TTL(), log)

	log.Info().Str("env", cfg.Env).Msg("users service starting")
	return infrahttp.Serve(ctx, e, ":"+cfg.Port, log)
}
