package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/config"
)

var errRedisNotConfigured = errors.New("redis client not configured")

// Redis wraps the go-redis client used for rate windows and the stats
// cache. A misconfigured or unreachable instance never blocks boot;
// callers degrade to in-memory stores.
type Redis struct {
	Client *redis.Client
}

// NewRedis dials Redis and probes it once, logging the outcome either way.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client}
}

func (r *Redis) guard() error {
	if r == nil || r.Client == nil {
		return errRedisNotConfigured
	}
	return nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.guard(); err != nil {
		return err
	}
	return r.Client.Ping(ctx).Err()
}

// Available reports whether the cache currently answers.
func (r *Redis) Available(ctx context.Context) bool {
	return r.Ping(ctx) == nil
}

// Set stores a value under key with a TTL.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := r.guard(); err != nil {
		return err
	}
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value by key. Returns redis.Nil when absent.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if err := r.guard(); err != nil {
		return "", err
	}
	return r.Client.Get(ctx, key).Result()
}

// Del removes a key.
func (r *Redis) Del(ctx context.Context, key string) error {
	if err := r.guard(); err != nil {
		return err
	}
	return r.Client.Del(ctx, key).Err()
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}
