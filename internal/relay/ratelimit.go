package relay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRateWindow = 10 * time.Minute
	DefaultRateMax    = 100

	rateLimitMessage = "Too many requests, please try again later."
)

// RateLimiter is a fixed-window per-IP counter backed by Redis, so the
// budget holds across relay replicas.
type RateLimiter struct {
	redis  *redis.Client
	window time.Duration
	max    int64
	logger *slog.Logger
}

func NewRateLimiter(redisClient *redis.Client, window time.Duration, max int64, logger *slog.Logger) *RateLimiter {
	if window <= 0 {
		window = DefaultRateWindow
	}
	if max <= 0 {
		max = DefaultRateMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		redis:  redisClient,
		window: window,
		max:    max,
		logger: logger,
	}
}

// Middleware rejects requests over the window budget with 429. A Redis
// outage fails open.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := "ratelimit:" + c.RealIP()

			count, err := rl.redis.Incr(ctx, key).Result()
			if err != nil {
				rl.logger.Warn("rate limit counter unavailable", "error", err)
				return next(c)
			}
			if count == 1 {
				if err := rl.redis.Expire(ctx, key, rl.window).Err(); err != nil {
					rl.logger.Warn("failed to set rate limit window", "error", err)
				}
			}

			if count > rl.max {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": rateLimitMessage,
				})
			}
			return next(c)
		}
	}
}
