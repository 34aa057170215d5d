// Package ratelimit provides a best-effort fixed-window request limiter keyed
// by route and caller address. It is explicitly not a distributed limiter and
// does not claim exactness across multiple processes.
package ratelimit

import (
	"context"
	"time"
)

// Limits describes one fixed window
type Limits struct {
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of consuming one request from a bucket
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

// Store holds the window buckets. Implementations must be safe for concurrent
// use; two concurrent takes on the same key must not lose an increment.
type Store interface {
	// Take consumes one request from the key's current window
	Take(ctx context.Context, key string, limits Limits) (Decision, error)
}

// Limiter applies one set of limits under a key prefix
type Limiter struct {
	store  Store
	prefix string
	limits Limits
}

// NewLimiter builds a limiter over the given store
func NewLimiter(store Store, prefix string, limits Limits) *Limiter {
	return &Limiter{store: store, prefix: prefix, limits: limits}
}

// CheckAndConsume consumes one request for (method, path, callerAddr)
func (l *Limiter) CheckAndConsume(ctx context.Context, method, path, callerAddr string) (Decision, error) {
	key := l.prefix + ":" + method + ":" + path + ":" + callerAddr
	return l.store.Take(ctx, key, l.limits)
}
