package ratelimit

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tesserahq/trustgate/internal/utils"
)

// CallerAddr resolves the caller address for limiting. The first entry of
// X-Forwarded-For wins so the limiter works behind a reverse proxy; the
// transport peer address is the fallback. The forwarded header is
// caller-supplied and only trustworthy behind a controlled proxy.
func CallerAddr(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}
	return c.IP()
}

// Middleware gates requests through the limiter, answering 429 with a
// Retry-After header once a caller's window is exhausted. Store failures let
// the request through; the limiter is an abuse gate, not an auth decision.
func Middleware(l *Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision, err := l.CheckAndConsume(c.UserContext(), c.Method(), c.Path(), CallerAddr(c))
		if err != nil {
			slog.Warn("Rate limit store unavailable, allowing request", "error", err)
			return c.Next()
		}

		if !decision.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(decision.RetryAfterSeconds))
			return utils.ErrorResponse(c, "too_many_requests", fiber.StatusTooManyRequests)
		}

		return c.Next()
	}
}
