package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the ephemeral fast path this core keeps alongside the
// durable Postgres store: it backs the order-intake idempotency cache
// (internal/idempotency.Backend) and nothing else durability-sensitive
// lives here. Redis is a coordination-and-speed layer; Postgres remains
// the source of truth.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}
