// File: internal/ratelimit/redis.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter keeps the window in Redis so every instance shares it.
// The first INCR of a window sets the key TTL; the key disappearing starts
// the next window.
type RedisRateLimiter struct {
	client *redis.Client
	config *Config
	prefix string
}

func NewRedisRateLimiter(client *redis.Client, config *Config, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{client: client, config: config, prefix: prefix}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, identifier string) (*RateLimitInfo, error) {
	key := fmt.Sprintf("%s:%s", rl.prefix, identifier)

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := rl.client.PExpire(ctx, key, rl.config.WindowSize).Err(); err != nil {
			return nil, fmt.Errorf("redis expire: %w", err)
		}
	}

	ttl, err := rl.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its TTL (e.g. expire failed earlier); restore it.
		ttl = rl.config.WindowSize
		_ = rl.client.PExpire(ctx, key, ttl).Err()
	}

	now := time.Now()
	info := &RateLimitInfo{
		Limit:     rl.config.MaxAttempts,
		ResetTime: now.Add(ttl),
	}
	if int(count) > rl.config.MaxAttempts {
		info.Allowed = false
		info.RetryAfter = ttl
		return info, nil
	}
	info.Allowed = true
	info.Remaining = rl.config.MaxAttempts - int(count)
	return info, nil
}
