package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter counts requests per key in fixed windows. The counter map is
// the only cross-request shared state in the service, so it is guarded by a
// plain mutex.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	// injectable for tests
	NowFunc func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		NowFunc: time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.NowFunc()
	b, ok := m.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		m.buckets[key] = b
	}

	res := Result{
		Limit:      limit,
		ResetAfter: b.resetAt.Sub(now),
	}

	if b.count >= limit {
		res.RetryAfter = b.resetAt.Sub(now)
		return res, nil
	}

	b.count++
	res.Allowed = true
	res.Remaining = limit - b.count
	return res, nil
}

// CleanupExpired drops buckets whose window has passed. Meant to be called
// periodically so the map does not grow with every client address ever seen.
func (m *MemoryLimiter) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.NowFunc()
	for key, b := range m.buckets {
		if now.After(b.resetAt) {
			delete(m.buckets, key)
		}
	}
}
