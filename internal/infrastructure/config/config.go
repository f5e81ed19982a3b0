package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Common holds settings shared by every binary.
type Common struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`
}

// JWTConfig is read once at startup and handed to the token service as an
// immutable value.
type JWTConfig struct {
	Secret string        `env:"JWT_SECRET, required"`
	TTL    time.Duration `env:"JWT_TTL,    default=30m"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// UsersConfig configures cmd/users.
type UsersConfig struct {
	Common
	Port        string   `env:"USERS_PORT,   default=8001"`
	AdminEmails []string `env:"ADMIN_EMAILS"`

	JWT   JWTConfig
	Mongo MongoConfig
}

// OrdersConfig configures cmd/orders.
type OrdersConfig struct {
	Common
	Port           string        `env:"ORDERS_PORT,     default=8002"`
	AuditWorkers   int           `env:"AUDIT_WORKERS,   default=4"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`

	JWT   JWTConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// GatewayConfig configures cmd/gateway. The gateway never validates tokens,
// so it carries no JWT settings.
type GatewayConfig struct {
	Common
	Port            string        `env:"GATEWAY_PORT,       default=8000"`
	UsersURL        string        `env:"SERVICE_USERS_URL,  default=http://localhost:8001"`
	OrdersURL       string        `env:"SERVICE_ORDERS_URL, default=http://localhost:8002"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,   default=30s"`
	RateLimitRPS    float64       `env:"RATE_LIMIT_RPS,     default=20"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,   default=40"`
	ServeDocs       bool          `env:"SERVE_DOCS,         default=true"`
}

// LoadUsers reads the users service configuration from the environment.
func LoadUsers(ctx context.Context) (*UsersConfig, error) {
	return loadUsers(ctx, envconfig.OsLookuper())
}

// LoadOrders reads the orders service configuration from the environment.
func LoadOrders(ctx context.Context) (*OrdersConfig, error) {
	return loadOrders(ctx, envconfig.OsLookuper())
}

// LoadGateway reads the gateway configuration from the environment.
func LoadGateway(ctx context.Context) (*GatewayConfig, error) {
	return loadGateway(ctx, envconfig.OsLookuper())
}

func loadUsers(ctx context.Context, l envconfig.Lookuper) (*UsersConfig, error) {
	var cfg UsersConfig
	if err := process(ctx, l, &cfg); err != nil {
		return nil, err
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "users_service"
	}
	return &cfg, nil
}

func loadOrders(ctx context.Context, l envconfig.Lookuper) (*OrdersConfig, error) {
	var cfg OrdersConfig
	if err := process(ctx, l, &cfg); err != nil {
		return nil, err
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "orders_service"
	}
	if cfg.AuditWorkers < 1 {
		return nil, fmt.Errorf("config: AUDIT_WORKERS must be at least 1")
	}
	return &cfg, nil
}

func loadGateway(ctx context.Context, l envconfig.Lookuper) (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := process(ctx, l, &cfg); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("config: UPSTREAM_TIMEOUT must be positive")
	}
	return &cfg, nil
}

func process(ctx context.Context, l envconfig.Lookuper, target any) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: target, Lookuper: l}); err != nil {
		return fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return nil
}
