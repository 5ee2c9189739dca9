package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter shared by every gateway instance:
// INCR quiz:ratelimit:{key}, with EXPIRE set on the first hit of a window.
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewLimiter(client *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{client: client, max: max, window: window}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.max <= 0 || l.window <= 0 {
		return true, nil
	}
	redisKey := "quiz:ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}
	return count <= int64(l.max), nil
}
