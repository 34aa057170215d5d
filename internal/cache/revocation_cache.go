package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevokedSessionPrefix is the key prefix for revoked session markers
const RevokedSessionPrefix = "session:revoked:"

// RevocationCache marks revoked sessions in Redis so the auth middleware can
// reject access tokens before their natural expiry. Entries carry a TTL equal
// to the remaining session lifetime, after which the token is dead anyway.
type RevocationCache struct {
	client *redis.Client
}

// NewRevocationCache creates a RevocationCache over the given client
func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// RevokeSession marks a session as revoked until ttl elapses
func (c *RevocationCache) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return c.client.Set(ctx, RevokedSessionPrefix+sessionID, "1", ttl).Err()
}

// IsSessionRevoked reports whether the session has a revocation marker
func (c *RevocationCache) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	if c.client == nil {
		return false, fmt.Errorf("redis client not initialized")
	}
	n, err := c.client.Exists(ctx, RevokedSessionPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
