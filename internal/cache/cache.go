// Package cache provides a small JSON cache over Redis with a no-op fallback
// used when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMiss = errors.New("cache miss")

type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NewCache picks the Redis implementation when a client is available
func NewCache(client *redis.Client, logger *zap.Logger) Cache {
	if client == nil {
		return NoopCache{}
	}
	return &RedisCache{client: client, logger: logger, prefix: "salescrm:"}
}

type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("Cache entry corrupt", zap.String("key", key), zap.Error(err))
		return ErrMiss
	}
	return nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.prefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

type NoopCache struct{}

func (NoopCache) GetJSON(context.Context, string, interface{}) error { return ErrMiss }

func (NoopCache) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

func (NoopCache) Delete(context.Context, ...string) error { return nil }
