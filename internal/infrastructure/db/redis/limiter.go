package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 10
	defaultWindow      = 15 * time.Minute
)

// AttemptLimiter is a fixed-window counter.
// Key format: attempts:<key>
type AttemptLimiter struct {
	client redis.Cmdable
	max    int64
	window time.Duration
}

func NewAttemptLimiter(client redis.Cmdable, max int, window time.Duration) *AttemptLimiter {
	if max <= 0 {
		max = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &AttemptLimiter{client: client, max: int64(max), window: window}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, l.key(key))
	pipe.ExpireNX(ctx, l.key(key), l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("count attempt: %w", err)
	}
	return incr.Val() <= l.max, nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

func (l *AttemptLimiter) key(key string) string {
	return "attempts:" + key
}
