package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker verifies the session registry's redis backend is reachable.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
