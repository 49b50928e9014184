package currency

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
)

// CacheConfig configures the layered rate cache
type CacheConfig struct {
	// TTL applies to both cache layers
	TTL time.Duration

	// L1Size is the max number of currencies held in process
	L1Size int

	// RedisAddr enables the Redis layer when non-empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultCacheConfig returns sensible cache defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:    15 * time.Minute,
		L1Size: 64,
	}
}

// CachedSource layers an in-process LRU (L1) and an optional Redis cache (L2)
// in front of a RateSource. Lookups are cache-aside: L1, then L2, then the
// upstream source, populating both layers on the way back.
type CachedSource struct {
	upstream RateSource
	l1       *lru.LRU[string, float64]
	redis    *redis.Client
	ttl      time.Duration
	metrics  *observability.Metrics
}

// NewCachedSource creates a layered cache around upstream. The Redis client
// may be nil, leaving only the in-process layer.
func NewCachedSource(upstream RateSource, cfg CacheConfig, redisClient *redis.Client, metrics *observability.Metrics) *CachedSource {
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.L1Size <= 0 {
		cfg.L1Size = 64
	}
	return &CachedSource{
		upstream: upstream,
		l1:       lru.NewLRU[string, float64](cfg.L1Size, nil, cfg.TTL),
		redis:    redisClient,
		ttl:      cfg.TTL,
		metrics:  metrics,
	}
}

// Rate resolves the rate via the cache layers, falling through to upstream
func (c *CachedSource) Rate(ctx context.Context, fromCurrency string) (float64, error) {
	if rate, ok := c.l1.Get(fromCurrency); ok {
		c.recordHit("l1")
		return rate, nil
	}

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, rateKey(fromCurrency)).Result()
		if err == nil {
			if rate, perr := strconv.ParseFloat(cached, 64); perr == nil {
				c.recordHit("l2")
				c.l1.Add(fromCurrency, rate)
				return rate, nil
			}
		}
	}

	if c.metrics != nil {
		c.metrics.RateCacheMissesTotal.Inc()
	}

	rate, err := c.upstream.Rate(ctx, fromCurrency)
	if err != nil {
		return 0, err
	}

	c.l1.Add(fromCurrency, rate)
	if c.redis != nil {
		c.redis.Set(ctx, rateKey(fromCurrency), strconv.FormatFloat(rate, 'f', -1, 64), c.ttl)
	}
	return rate, nil
}

func (c *CachedSource) recordHit(layer string) {
	if c.metrics != nil {
		c.metrics.RateCacheHitsTotal.WithLabelValues(layer).Inc()
	}
}

func rateKey(currency string) string {
	return fmt.Sprintf("rate:%s:%s", currency, ReferenceCurrency)
}
