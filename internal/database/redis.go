package database

import (
	"context"
	"time"

	"salescrm/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis when REDIS_URL is set. A nil client means
// caching is disabled; callers must handle that.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, dashboard cache disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, dashboard cache disabled", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, dashboard cache disabled", zap.Error(err))
		_ = client.Close()
		return nil
	}

	logger.Info("Connected to Redis", zap.String("addr", opts.Addr))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}
