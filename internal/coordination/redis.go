package coordination

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCoordinator implements Coordinator using Redis SETNX and small Lua
// scripts for ownership-checked renew/release.
type RedisCoordinator struct {
	client *redis.Client
}

// NewRedisCoordinator wraps an existing Redis client.
func NewRedisCoordinator(client *redis.Client) *RedisCoordinator {
	return &RedisCoordinator{client: client}
}

func (c *RedisCoordinator) AcquireLock(ctx context.Context, key string, ownerID string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, "deliverycore:lock:"+key, ownerID, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// renewScript extends the TTL only if the caller still owns the key.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`

func (c *RedisCoordinator) RenewLock(ctx context.Context, key string, ownerID string, ttl time.Duration) (bool, error) {
	res, err := c.client.Eval(ctx, renewScript, []string{"deliverycore:lock:" + key}, ownerID, ttl.Milliseconds()).Result()
	if err != nil {
		return false, err
	}
	n, _ := res.(int64)
	return n == 1, nil
}

// releaseScript deletes the key only if the caller still owns it, avoiding
// a TOCTOU race between GET and DEL.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

func (c *RedisCoordinator) ReleaseLock(ctx context.Context, key string, ownerID string) error {
	_, err := c.client.Eval(ctx, releaseScript, []string{"deliverycore:lock:" + key}, ownerID).Result()
	return err
}

func (c *RedisCoordinator) AcquireLease(ctx context.Context, key string, ownerID string, ttl time.Duration) (bool, error) {
	return c.AcquireLock(ctx, "lease:"+key, ownerID, ttl)
}

func (c *RedisCoordinator) ReleaseLease(ctx context.Context, key string, ownerID string) error {
	return c.ReleaseLock(ctx, "lease:"+key, ownerID)
}

func (c *RedisCoordinator) IncrementEpoch(ctx context.Context, resourceID string) (int64, error) {
	return c.client.Incr(ctx, "deliverycore:epoch:"+resourceID).Result()
}
