package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedKeyPrefix = "dashboard-revoked-session||"

var _ Revoker = (*MemoryRevoker)(nil)
var _ Revoker = (*RedisRevoker)(nil)

// Revoker is the session revocation set: logout puts the token id in, the
// session check asks if it is there. Entries only need to live until the
// token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time

	// injectable for tests
	NowFunc func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: make(map[string]time.Time),
		NowFunc: time.Now,
	}
}

func (mr *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	mr.revoked[tokenID] = until
	return nil
}

func (mr *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	until, ok := mr.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if mr.NowFunc().After(until) {
		delete(mr.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// CleanupExpired drops entries for tokens that are past their expiry.
func (mr *MemoryRevoker) CleanupExpired() {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	now := mr.NowFunc()
	for tokenID, until := range mr.revoked {
		if now.After(until) {
			delete(mr.revoked, tokenID)
		}
	}
}

// RedisRevoker keeps the revocation set in redis so replicas agree on what
// is logged out. Key TTL equals the remaining session TTL, redis handles
// the cleanup.
type RedisRevoker struct {
	redisClient *redis.Client
}

func NewRedisRevoker(redisClient *redis.Client) *RedisRevoker {
	return &RedisRevoker{redisClient: redisClient}
}

func (rr *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return rr.redisClient.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err()
}

func (rr *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := rr.redisClient.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
