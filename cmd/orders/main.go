// Command orders runs the orders service: the order lifecycle behind
// ownership checks, with an asynchronous audit trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99minutos/order-platform/internal/api"
	"github.com/99minutos/order-platform/internal/core/service"
	"github.com/99minutos/order-platform/internal/infrastructure/config"
	"github.com/99minutos/order-platform/internal/infrastructure/db/mongo"
	"github.com/99minutos/order-platform/internal/infrastructure/db/redis"
	infrahttp "github.com/99minutos/order-platform/internal/infrastructure/http"
	"github.com/99minutos/order-platform/internal/infrastructure/http/handlers"
	"github.com/99minutos/order-platform/internal/infrastructure/queue"
	"github.com/99minutos/order-platform/pkg/logger"
)

const drainTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "orders: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadOrders(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "orders"})

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

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	orderRepo := mongo.NewOrderRepository(db)
	eventRepo := mongo.NewEventRepository(db)
	if err := mongo.EnsureIndexes(ctx, orderRepo, eventRepo); err != nil {
		return err
	}

	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret: []byte(cfg.JWT.Secret),
		TTL:    cfg.JWT.TTL,
	})
	if err != nil {
		return err
	}

	// Workers outlive the request context so Stop can drain them after the
	// server has shut down.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, service.NewAuditService(eventRepo, log), log)
	dispatcher.Start(workerCtx)

	orders := service.NewOrderService(orderRepo, log,
		service.WithEventPublisher(dispatcher),
		service.WithIdempotencyStore(redis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)),
	)

	e := infrahttp.NewRouter(infrahttp.RouterOptions{
		Service: "orders",
		Log:     log,
		Checks: []handlers.Check{
			{Name: "mongodb", Probe: func(ctx context.Context) error { return mongo.Ping(ctx, db) }},
			{Name: "redis", Probe: func(ctx context.Context) error { return redis.Ping(ctx, rdb, 0) }},
		},
	})
	api.RegisterOrderRoutes(e, orders, tokens, log)

	log.Info().Str("env", cfg.Env).Int("audit_workers", cfg.AuditWorkers).Msg("orders service starting")
	serveErr := infrahttp.Serve(ctx, e, ":"+cfg.Port, log)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := dispatcher.Stop(drainCtx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}
	return serveErr
}
