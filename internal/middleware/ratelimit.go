package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// Key generator function
	KeyGenerator func(*fiber.Ctx) string
	// Skip function
	Skip func(*fiber.Ctx) bool
	// Custom limit exceeded handler
	LimitReached fiber.Handler
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Max:          600,
		Window:       time.Minute,
		KeyGenerator: OwnerKey,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Too Many Requests",
				"message": "Rate limit exceeded. Please try again later.",
			})
		},
	}
}

// OwnerKey keys the limiter by authenticated owner, falling back to the
// client IP for anonymous routes.
func OwnerKey(c *fiber.Ctx) string {
	if ownerID, ok := GetUserID(c); ok {
		return "owner:" + ownerID
	}
	return "ip:" + c.IP()
}

// RateLimitMiddleware is a sliding window rate limiter backed by a Redis
// sorted set per key
type RateLimitMiddleware struct {
	redis  *redis.Client
	config RateLimitConfig
	logger *zap.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(redisClient *redis.Client, logger *zap.Logger, config ...RateLimitConfig) *RateLimitMiddleware {
	cfg := DefaultRateLimitConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = OwnerKey
	}
	if cfg.LimitReached == nil {
		cfg.LimitReached = DefaultRateLimitConfig().LimitReached
	}

	return &RateLimitMiddleware{
		redis:  redisClient,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the rate limit handler
func (m *RateLimitMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.config.Max <= 0 || (m.config.Skip != nil && m.config.Skip(c)) {
			return c.Next()
		}

		key := "rolodex:ratelimit:" + m.config.KeyGenerator(c)
		now := time.Now()
		windowStart := now.Add(-m.config.Window)
		ctx := c.UserContext()

		pipe := m.redis.TxPipeline()
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart.UnixNano(), 10))
		countCmd := pipe.ZCard(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			// Fail open; the limiter is not worth an outage.
			m.logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		count := countCmd.Val()

		reset := strconv.FormatInt(now.Add(m.config.Window).Unix(), 10)
		c.Set("X-RateLimit-Limit", strconv.Itoa(m.config.Max))
		c.Set("X-RateLimit-Reset", reset)

		if count >= int64(m.config.Max) {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set("Retry-After", strconv.Itoa(int(m.config.Window.Seconds())))
			return m.config.LimitReached(c)
		}

		pipe = m.redis.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixNano()),
			Member: fmt.Sprintf("%d:%s", now.UnixNano(), GetRequestID(c)),
		})
		pipe.Expire(ctx, key, m.config.Window*2)
		if _, err := pipe.Exec(ctx); err != nil {
			m.logger.Warn("failed to record request for rate limiting", zap.String("key", key), zap.Error(err))
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(m.config.Max-int(count)-1))
		return c.Next()
	}
}
