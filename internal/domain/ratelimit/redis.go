package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const bucketKeyPrefix = "ratelimit:"

// RedisStore counts windows in Redis with INCR and a window-length TTL, so
// limits are shared across processes. The count may briefly exceed the
// maximum under contention; every excess request still receives a deny.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Redis-backed bucket store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Take(ctx context.Context, key string, limits Limits) (Decision, error) {
	bucketKey := bucketKeyPrefix + key

	count, err := s.client.Incr(ctx, bucketKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr failed: %w", err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, bucketKey, limits.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire failed: %w", err)
		}
	}

	if count <= int64(limits.MaxRequests) {
		return Decision{Allowed: true, Remaining: limits.MaxRequests - int(count)}, nil
	}

	ttl, err := s.client.PTTL(ctx, bucketKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit ttl lookup failed: %w", err)
	}
	retry := int(ttl.Seconds())
	if retry < 1 {
		retry = 1
	}
	return Decision{Allowed: false, RetryAfterSeconds: retry}, nil
}
