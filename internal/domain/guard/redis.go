package guard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	failureKeyPrefix = "guard:fail:"
	lockKeyPrefix    = "guard:lock:"
)

// RedisGuard is a Guard backed by Redis so lockout state is shared across
// processes. Failures are held in a sorted set scored by timestamp; the lock
// is a plain key whose TTL doubles as the retry hint.
type RedisGuard struct {
	client *redis.Client
	cfg    Config
	now    func() time.Time
}

// NewRedisGuard returns a Redis-backed guard with the given thresholds
func NewRedisGuard(client *redis.Client, cfg Config) *RedisGuard {
	return &RedisGuard{
		client: client,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

func (g *RedisGuard) IsLocked(ctx context.Context, key string) (Status, error) {
	ttl, err := g.client.PTTL(ctx, lockKeyPrefix+key).Result()
	if err != nil {
		return Status{}, fmt.Errorf("guard lock lookup failed: %w", err)
	}
	if ttl > 0 {
		secs := int(ttl.Seconds())
		if secs < 1 {
			secs = 1
		}
		return Status{Locked: true, RetryAfterSeconds: secs}, nil
	}
	return Status{}, nil
}

func (g *RedisGuard) RegisterFailure(ctx context.Context, key string) error {
	st, err := g.IsLocked(ctx, key)
	if err != nil {
		return err
	}
	if st.Locked {
		return nil
	}

	now := g.now()
	failKey := failureKeyPrefix + key
	cutoff := strconv.FormatInt(now.Add(-g.cfg.Window).UnixNano(), 10)

	pipe := g.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, failKey, "-inf", cutoff)
	pipe.ZAdd(ctx, failKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, failKey)
	pipe.Expire(ctx, failKey, g.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("guard failure record failed: %w", err)
	}

	if count.Val() >= int64(g.cfg.MaxFailures) {
		pipe := g.client.TxPipeline()
		pipe.Set(ctx, lockKeyPrefix+key, "1", g.cfg.Lockout)
		pipe.Del(ctx, failKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("guard lock set failed: %w", err)
		}
	}
	return nil
}

func (g *RedisGuard) ClearOnSuccess(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, failureKeyPrefix+key, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("guard clear failed: %w", err)
	}
	return nil
}
