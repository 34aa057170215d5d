package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often the store walks its bucket map
const sweepInterval = time.Minute

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the default in-process bucket store. Elapsed buckets are
// swept opportunistically so the map cannot grow unboundedly across distinct
// callers and routes.
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore returns an empty in-memory bucket store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// WithClock overrides the store's time source. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Take(ctx context.Context, key string, limits Limits) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		s.buckets[key] = &bucket{count: 1, resetAt: now.Add(limits.Window)}
		return Decision{Allowed: true, Remaining: limits.MaxRequests - 1}, nil
	}

	if b.count < limits.MaxRequests {
		b.count++
		return Decision{Allowed: true, Remaining: limits.MaxRequests - b.count}, nil
	}

	retry := int(b.resetAt.Sub(now).Seconds())
	if retry < 1 {
		retry = 1
	}
	return Decision{Allowed: false, RetryAfterSeconds: retry}, nil
}

// sweepLocked removes buckets whose window has elapsed, at most once per
// sweepInterval. Caller must hold s.mu.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, key)
		}
	}
}
