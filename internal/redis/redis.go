package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/impify/impify/internal/config"
)

// pingTimeout bounds the startup ping independently of the caller's context.
const pingTimeout = 5 * time.Second

// Options maps the service configuration onto go-redis options. Zero pool
// size and dial timeout keep the go-redis defaults.
func Options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return opts
}

// NewClient connects to the Redis instance that backs the daily usage
// counters and the per-IP rate limiter.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := HealthCheck(pingCtx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}

	slog.Info("connected to Redis", "addr", cfg.Addr(), "db", cfg.DB, "pool_size", client.Options().PoolSize)
	return client, nil
}

// HealthCheck pings Redis for the readiness probe.
func HealthCheck(ctx context.Context, client redis.Cmdable) error {
	return client.Ping(ctx).Err()
}
