package token

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationSet records revoked token ids until the underlying token would
// have expired anyway. It must give read-your-writes consistency: a jti
// inserted by one instance is visible to Contains on every instance, which
// is why the production implementation lives in a shared Redis.
type RevocationSet interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationSet implements RevocationSet on a shared Redis client.
type RedisRevocationSet struct {
	client *redis.Client
}

// NewRedisRevocationSet constructs a Redis backed revocation set.
func NewRedisRevocationSet(client *redis.Client) *RedisRevocationSet {
	return &RedisRevocationSet{client: client}
}

// Add marks a jti as revoked for the given TTL. Entries for tokens that are
// already past expiry are dropped silently; re-adding an existing jti is a
// no-op, keeping revocation idempotent.
func (s *RedisRevocationSet) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("token: revoke %s: %w", jti, err)
	}
	return nil
}

// Contains reports whether a jti has been revoked.
func (s *RedisRevocationSet) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("token: revocation lookup %s: %w", jti, err)
	}
	return n > 0, nil
}

func revocationKey(jti string) string {
	return "revoked:" + jti
}

var _ RevocationSet = (*RedisRevocationSet)(nil)
