package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
)

const redisKeyPrefix = "dashboard-rate-limit||"

// RedisLimiter shares the per-address counters between replicas through
// redis. Used instead of MemoryLimiter when redis is configured.
type RedisLimiter struct {
	limiter *redis_rate.Limiter
}

func NewRedisLimiter(redisClient *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		limiter: redis_rate.NewLimiter(redisClient),
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	res, err := rl.limiter.Allow(ctx, redisKeyPrefix+key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: window,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Allowed:    res.Allowed > 0,
		Limit:      limit,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
		ResetAfter: res.ResetAfter,
	}, nil
}
