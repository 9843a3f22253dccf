package ratelimit

import (
	"context"
	"time"
)

var _ Limiter = (*MemoryLimiter)(nil)
var _ Limiter = (*RedisLimiter)(nil)

// Result is what a single Allow check decided, with enough detail to fill
// the RateLimit-* response headers.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
