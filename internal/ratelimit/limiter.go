package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hfl-auth/internal/bucketing"
	"hfl-auth/internal/client"
	"hfl-auth/internal/config"
	"hfl-auth/internal/util"
)

// Limiter counts requests per source in fixed windows backed by redis, so
// the budget holds across instances. A redis fault fails open: blocking all
// logins on a cache outage is worse than briefly losing the limiter.
type Limiter struct {
	redis   *client.RedisClient
	limit   int
	window  time.Duration
	buckets *bucketing.Manager
}

func NewLimiter(cfg *config.Config, redis *client.RedisClient, buckets *bucketing.Manager) *Limiter {
	return &Limiter{
		redis:   redis,
		limit:   cfg.RateLimit.RequestsPerWindow,
		window:  cfg.RateLimit.Window,
		buckets: buckets,
	}
}

// Allow reports whether the source may proceed. A nil Limiter or missing
// redis always allows.
func (l *Limiter) Allow(ctx context.Context, source string) bool {
	if l == nil || l.redis == nil {
		return true
	}

	window := l.buckets.TimeBucket(time.Now(), l.window)
	key := fmt.Sprintf("rate:auth:%s:%d", source, window)

	count, err := l.redis.IncrWithExpire(ctx, key, l.window)
	if err != nil {
		util.Warn("Rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}

	if count > int64(l.limit) {
		util.Info("Rate limit exceeded",
			zap.String("source", source),
			zap.Int64("count", count))
		return false
	}
	return true
}
