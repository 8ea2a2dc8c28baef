package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/config"
	"github.com/spec-kit/ticket-ai/pkg/util"
)

// NewLimiterStore returns a Redis-backed store when client is set, otherwise
// an in-process one.
func NewLimiterStore(client *redis.Client, cfg config.RateLimitConfig) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          cfg.Prefix,
		MaxRetry:        limiter.DefaultMaxRetry,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	return redisstore.NewStoreWithOptions(client, opts)
}

// RateLimit limits requests per client IP. Store errors let the request
// through.
func RateLimit(store limiter.Store, rate limiter.Rate, logger *zap.Logger) fiber.Handler {
	lim := limiter.New(store, rate)
	return func(c *fiber.Ctx) error {
		key := c.Route().Path + ":" + c.IP()
		res, err := lim.Get(c.UserContext(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
		if res.Reached {
			return util.NewTooManyRequests("too many requests, slow down")
		}
		return c.Next()
	}
}
