package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

var rateLimitEnv string

// SetRateLimitEnvironment overrides the APP_ENV lookup used to decide whether
// rate limiting is bypassed.
func SetRateLimitEnvironment(env string) {
	rateLimitEnv = env
}

func rateLimitBypassed() bool {
	env := rateLimitEnv
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	switch env {
	case "", "test", "development", "dev":
		return true
	}
	return false
}

type window struct {
	count     int64
	remaining time.Duration
}

// hit counts one request against key and reports the window state. The
// expiry is set by the first hit; a key left without a TTL is repaired.
func hit(ctx context.Context, rdb *redis.Client, key string, period time.Duration) (window, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.TTL(ctx, key)
		return nil
	})
	if err != nil {
		RedisErrors.WithLabelValues("rate_limit").Inc()
		return window{}, err
	}

	w := window{count: incr.Val(), remaining: ttl.Val()}
	if w.remaining < 0 {
		if err := rdb.Expire(ctx, key, period).Err(); err != nil {
			RedisErrors.WithLabelValues("rate_limit").Inc()
			return window{}, err
		}
		w.remaining = period
	}
	return w, nil
}

func rateLimitKey(resource, id string) string {
	return "rl:" + resource + ":" + id
}

// CheckRateLimit reports whether id may make another request to resource
// within a fixed window. It always allows in development and test.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, period time.Duration) (bool, error) {
	if rateLimitBypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, fmt.Errorf("rate limit store not configured")
	}
	w, err := hit(ctx, rdb, rateLimitKey(resource, id), period)
	if err != nil {
		return false, err
	}
	return w.count <= int64(limit), nil
}

// RateLimit allows limit requests per period for each caller, keyed by user
// id once authenticated and by IP before. Redis failures let requests through.
func RateLimit(rdb *redis.Client, limit int, period time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, period, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, period time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rateLimitBypassed() {
			return c.Next()
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		var (
			w   window
			err = errors.New("rate limit store not configured")
		)
		if rdb != nil {
			w, err = hit(c.UserContext(), rdb, rateLimitKey(resource, id), period)
		}
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting request",
				slog.String("resource", resource), slog.String("error", err.Error()))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Rate limiting is temporarily unavailable",
			})
		}

		left := int64(limit) - w.count
		if left < 0 {
			left = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
		if w.count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(w.remaining.Seconds()+0.5)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		}
		return c.Next()
	}
}
