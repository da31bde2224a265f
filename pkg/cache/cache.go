package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aptbook/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned by GetJSON when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a TTL-bounded JSON cache. Writers invalidate explicitly after
// every successful store mutation.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type RedisCache struct {
	cli *redis.Client
	log *logger.Logger
}

func NewRedisCache(cli *redis.Client, log *logger.Logger) *RedisCache {
	return &RedisCache{cli: cli, log: log}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) error {
	value, err := c.cli.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(value, dst); err != nil {
		// a corrupt entry behaves like a miss and is dropped
		c.log.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		_ = c.cli.Del(ctx, key).Err()
		return ErrMiss
	}
	c.log.Debug("Cache hit", "key", key)
	return nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.cli.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.cli.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.cli.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", prefix, err)
	}
	return c.Delete(ctx, keys...)
}
