// Package guard tracks failed login attempts per identifier and locks out
// bursty offenders. Counting is windowed rather than cumulative so sporadic
// failures over long periods never trigger a lockout.
package guard

import (
	"context"
	"strings"
	"time"
)

const (
	// DefaultMaxFailures is the number of windowed failures that triggers a lock
	DefaultMaxFailures = 6
	// DefaultWindow is the trailing window failures are counted over
	DefaultWindow = 10 * time.Minute
	// DefaultLockout is how long a triggered lock lasts
	DefaultLockout = 15 * time.Minute
)

// Config holds the guard thresholds
type Config struct {
	MaxFailures int
	Window      time.Duration
	Lockout     time.Duration
}

// withDefaults fills zero values with the package defaults
func (c Config) withDefaults() Config {
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Lockout <= 0 {
		c.Lockout = DefaultLockout
	}
	return c
}

// Status is the lockout decision for a guard key
type Status struct {
	Locked            bool
	RetryAfterSeconds int
}

// Guard is the brute-force defense consulted around the login path.
// Implementations must be safe for concurrent use.
type Guard interface {
	// IsLocked reports whether the key is currently locked out
	IsLocked(ctx context.Context, key string) (Status, error)
	// RegisterFailure records a failed login and may trigger a lock
	RegisterFailure(ctx context.Context, key string) error
	// ClearOnSuccess wipes failure history and any lock for the key
	ClearOnSuccess(ctx context.Context, key string) error
}

// Normalize builds a guard key from a login identifier and workspace domain.
// Both parts are case-folded; a sentinel is used when both are empty so guard
// lookups never fail on missing input.
func Normalize(identifier, workspaceDomain string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	workspaceDomain = strings.ToLower(strings.TrimSpace(workspaceDomain))
	if identifier == "" && workspaceDomain == "" {
		return "unknown"
	}
	return identifier + "|" + workspaceDomain
}

func retryAfterSeconds(until time.Time, now time.Time) int {
	secs := int(until.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
