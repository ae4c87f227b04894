package common

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/kaushal/skillcredits/pkg/config"
)

// RateLimiter limits requests per client IP. Behind a proxy the first
// X-Forwarded-For entry, then X-Real-IP, identifies the client.
func RateLimiter(cfg *config.RateLimit) fiber.Handler {
	maxRequests, window := 100, time.Minute
	if cfg != nil {
		if cfg.MaxRequests > 0 {
			maxRequests = cfg.MaxRequests
		}
		if cfg.Window > 0 {
			window = cfg.Window
		}
	}
	return limiter.New(limiter.Config{
		Max:          maxRequests,
		Expiration:   window,
		KeyGenerator: ClientKey,
		LimitReached: func(c *fiber.Ctx) error {
			return ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				"rate limit exceeded",
				fiber.StatusTooManyRequests,
			)
		},
	})
}

// ClientKey identifies the caller for rate limiting.
func ClientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
