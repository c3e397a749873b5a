package ratelimit

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"codeberg.org/nexusdigital/identity/internal/logger"
)

// Middleware returns a per-client-IP rate limiter for the auth
// endpoints. rateSpec uses the limiter format, e.g. "20-M" for twenty
// requests per minute. The counters live in redis when a URL is
// configured so limits hold across replicas; otherwise they are kept
// in process memory.
func Middleware(rateSpec, redisURL string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(rateSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rateSpec, err)
	}

	store, err := newStore(redisURL)
	if err != nil {
		return nil, err
	}

	return mgin.NewMiddleware(limiter.New(store, rate)), nil
}

func newStore(redisURL string) (limiter.Store, error) {
	if redisURL == "" {
		logger.Debug("rate limit counters in process memory")
		return memory.NewStore(), nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	store, err := sredis.NewStoreWithOptions(redis.NewClient(opt), limiter.StoreOptions{
		Prefix: "nexus:ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}

	logger.Debug("rate limit counters in redis")
	return store, nil
}
