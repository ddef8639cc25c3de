// ratelimit.go implements a per-IP fixed-window rate limiter backed by
// Redis, so the limit holds across replicas. Designed for the credential
// endpoints, where brute-force pressure concentrates.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimiter builds per-route rate limiting middleware on a shared Redis
// connection.
type RateLimiter struct {
	redis *redis.Client
}

// NewRateLimiter creates a rate limiter using the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{redis: client}
}

// Limit returns middleware that allows maxRequests per IP within the window
// for the decorated route, returning 429 once exceeded.
//
// The counter is INCR on a key scoped to route path and client IP, with the
// window TTL set on first increment. Redis being unreachable fails OPEN: a
// broken limiter must not take logins down with it.
func (rl *RateLimiter) Limit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("ratelimit:%s:%s", c.Path(), c.RealIP())
			ctx := c.Request().Context()

			count, err := rl.redis.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.Any("error", err),
				)
				return next(c)
			}
			if count == 1 {
				if err := rl.redis.Expire(ctx, key, window).Err(); err != nil {
					slog.Warn("failed to set rate limit window",
						slog.String("key", key),
						slog.Any("error", err),
					)
				}
			}

			if count > int64(maxRequests) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Too Many Requests",
					"message": "Rate limit exceeded. Please try again later.",
				})
			}
			return next(c)
		}
	}
}
