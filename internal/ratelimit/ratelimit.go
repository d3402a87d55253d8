package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // time until the current window resets
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed-window counter shared by every replica that
// points at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "inference:ratelimit:",
		limit:  limit,
		period: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey, resetIn := l.windowKey(key, l.now())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	// Expire a little after the window ends so clock skew between replicas
	// cannot drop a live counter.
	pipe.Expire(ctx, redisKey, l.period+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:    count <= l.limit,
		Limit:      l.limit,
		Remaining:  remaining,
		RetryAfter: resetIn,
	}, nil
}

// windowKey returns the counter key for the window containing now and the
// time left until that window closes.
func (l *RedisLimiter) windowKey(key string, now time.Time) (string, time.Duration) {
	windowStart := now.Truncate(l.period)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
	return redisKey, windowStart.Add(l.period).Sub(now)
}

// Close releases the Redis connection pool.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
