package ratelimit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func take(t *testing.T, s Store, key string, limits Limits) Decision {
	t.Helper()
	d, err := s.Take(context.Background(), key, limits)
	if err != nil {
		t.Fatalf("Take() unexpected error: %v", err)
	}
	return d
}

func TestMemoryStore_FixedWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	limits := Limits{MaxRequests: 3, Window: time.Second}
	key := "api:GET:/v1/tickets:10.0.0.1"

	for i := 1; i <= 3; i++ {
		d := take(t, store, key, limits)
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i)
		}
		if want := 3 - i; d.Remaining != want {
			t.Errorf("request %d Remaining = %d, want %d", i, d.Remaining, want)
		}
	}

	d := take(t, store, key, limits)
	if d.Allowed {
		t.Fatalf("4th request allowed, want denied")
	}
	if d.RetryAfterSeconds < 1 {
		t.Errorf("RetryAfterSeconds = %d, want >= 1", d.RetryAfterSeconds)
	}

	// After the window elapses the counter starts over
	clock.Advance(time.Second + time.Millisecond)
	d = take(t, store, key, limits)
	if !d.Allowed {
		t.Fatalf("request after window reset denied")
	}
	if d.Remaining != 2 {
		t.Errorf("Remaining after reset = %d, want 2", d.Remaining)
	}
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	limits := Limits{MaxRequests: 1, Window: time.Minute}

	if d := take(t, store, "api:GET:/a:10.0.0.1", limits); !d.Allowed {
		t.Fatalf("first key denied")
	}
	if d := take(t, store, "api:GET:/a:10.0.0.2", limits); !d.Allowed {
		t.Errorf("different caller address shares a bucket")
	}
	if d := take(t, store, "api:POST:/a:10.0.0.1", limits); !d.Allowed {
		t.Errorf("different method shares a bucket")
	}
}

func TestMemoryStore_ConcurrentTakes(t *testing.T) {
	store := NewMemoryStore()
	limits := Limits{MaxRequests: 50, Window: time.Minute}
	key := "api:GET:/v1/tickets:10.0.0.9"

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := store.Take(context.Background(), key, limits)
			if err != nil {
				t.Error(err)
				return
			}
			allowed <- d.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 50 {
		t.Errorf("allowed %d of 100 concurrent requests, want exactly 50", count)
	}
}

func TestMemoryStore_SweepBoundsMemory(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore().WithClock(clock.Now)
	limits := Limits{MaxRequests: 3, Window: time.Second}

	take(t, store, "api:GET:/a:10.0.0.1", limits)
	take(t, store, "api:GET:/b:10.0.0.2", limits)

	// All windows elapse; the next take past the sweep interval collects them
	clock.Advance(2 * time.Minute)
	take(t, store, "api:GET:/c:10.0.0.3", limits)

	store.mu.Lock()
	remaining := len(store.buckets)
	store.mu.Unlock()
	if remaining != 1 {
		t.Errorf("sweep left %d buckets, want 1 (the live one)", remaining)
	}
}

func newMiddlewareApp(limits Limits, clock *fakeClock) *fiber.App {
	store := NewMemoryStore()
	if clock != nil {
		store.WithClock(clock.Now)
	}
	limiter := NewLimiter(store, "test", limits)

	app := fiber.New()
	app.Get("/ping", Middleware(limiter), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestMiddleware_DeniesWithRetryAfter(t *testing.T) {
	app := newMiddlewareApp(Limits{MaxRequests: 2, Window: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		if err != nil {
			t.Fatalf("app.Test() unexpected error: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("app.Test() unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Errorf("429 response missing Retry-After header")
	}
}

func TestMiddleware_ForwardedAddressSplitsBuckets(t *testing.T) {
	app := newMiddlewareApp(Limits{MaxRequests: 1, Window: time.Minute}, nil)

	first := httptest.NewRequest("GET", "/ping", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp, err := app.Test(first)
	if err != nil {
		t.Fatalf("app.Test() unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first caller status = %d, want 200", resp.StatusCode)
	}

	second := httptest.NewRequest("GET", "/ping", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.8")
	resp, err = app.Test(second)
	if err != nil {
		t.Fatalf("app.Test() unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("second caller status = %d, want 200 (buckets shared across addresses)", resp.StatusCode)
	}

	// Same forwarded address as the first request exhausts its bucket
	third := httptest.NewRequest("GET", "/ping", nil)
	third.Header.Set("X-Forwarded-For", "203.0.113.7")
	resp, err = app.Test(third)
	if err != nil {
		t.Fatalf("app.Test() unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("repeat caller status = %d, want 429", resp.StatusCode)
	}
}
