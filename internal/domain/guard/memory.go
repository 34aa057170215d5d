package guard

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often the memory guard walks its map
const sweepInterval = time.Minute

type failureWindow struct {
	failures    []time.Time
	lockedUntil time.Time
}

// MemoryGuard is an in-memory Guard for single-process deployments. State is
// lost on restart, which only weakens the defense temporarily; it never
// affects authentication correctness.
type MemoryGuard struct {
	mu        sync.Mutex
	entries   map[string]*failureWindow
	cfg       Config
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryGuard returns a memory-backed guard with the given thresholds
func NewMemoryGuard(cfg Config) *MemoryGuard {
	return &MemoryGuard{
		entries: make(map[string]*failureWindow),
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// WithClock overrides the guard's time source. Intended for tests.
func (g *MemoryGuard) WithClock(now func() time.Time) *MemoryGuard {
	g.now = now
	return g
}

// prune drops failures outside the trailing window and clears an expired lock
func (e *failureWindow) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	kept := e.failures[:0]
	for _, t := range e.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.failures = kept
	if !e.lockedUntil.IsZero() && !now.Before(e.lockedUntil) {
		e.lockedUntil = time.Time{}
	}
}

func (e *failureWindow) empty() bool {
	return len(e.failures) == 0 && e.lockedUntil.IsZero()
}

// IsLocked reports whether the key is locked out right now
func (g *MemoryGuard) IsLocked(ctx context.Context, key string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweepLocked(now)

	e, ok := g.entries[key]
	if !ok {
		return Status{}, nil
	}

	e.prune(now, g.cfg.Window)
	if e.empty() {
		delete(g.entries, key)
		return Status{}, nil
	}

	if now.Before(e.lockedUntil) {
		return Status{Locked: true, RetryAfterSeconds: retryAfterSeconds(e.lockedUntil, now)}, nil
	}
	return Status{}, nil
}

// RegisterFailure appends a failure and locks the key once the windowed count
// reaches the threshold. The history is cleared at lock time so a freshly
// expired lock does not immediately re-trigger from stale entries. A failure
// recorded during an active lock neither extends nor shortens it.
func (g *MemoryGuard) RegisterFailure(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	e, ok := g.entries[key]
	if !ok {
		e = &failureWindow{}
		g.entries[key] = e
	}

	if now.Before(e.lockedUntil) {
		return nil
	}

	e.prune(now, g.cfg.Window)
	e.failures = append(e.failures, now)

	if len(e.failures) >= g.cfg.MaxFailures {
		e.lockedUntil = now.Add(g.cfg.Lockout)
		e.failures = nil
	}
	return nil
}

// ClearOnSuccess fully resets the guard for the key
func (g *MemoryGuard) ClearOnSuccess(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

// sweepLocked removes fully expired entries at most once per sweepInterval.
// Caller must hold g.mu.
func (g *MemoryGuard) sweepLocked(now time.Time) {
	if now.Sub(g.lastSweep) < sweepInterval {
		return
	}
	g.lastSweep = now
	for key, e := range g.entries {
		e.prune(now, g.cfg.Window)
		if e.empty() {
			delete(g.entries, key)
		}
	}
}
