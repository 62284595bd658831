package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter on a Redis sorted set per identity, so
// the admitted count is shared across gateway replicas. Scores are
// nanosecond timestamps; members carry a random suffix so concurrent
// admissions in the same nanosecond stay distinct.
type RedisLimiter struct {
	client *redis.Client
}

// NewRedisLimiter creates a limiter on an existing Redis client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// allowScript prunes, counts and inserts in one atomic step. Redis runs
// scripts serially, which gives the per-identity atomicity the contract
// requires. ZREMRANGEBYSCORE's upper bound is inclusive, so entries exactly
// one window old are treated as expired.
var allowScript = redis.NewScript(`
	redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
	local count = redis.call('ZCARD', KEYS[1])
	local limit = tonumber(ARGV[2])
	if limit <= 0 or count >= limit then
		return 0
	end
	redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
	redis.call('EXPIRE', KEYS[1], ARGV[5])
	return 1
`)

func limiterKey(identity string) string {
	return "rate_limit:" + identity
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, identity string, limit int, window time.Duration) (Decision, error) {
	now := time.Now()
	cutoff := now.Add(-window).UnixNano()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())
	expiry := int64(window/time.Second) + 1

	res, err := allowScript.Run(ctx, l.client, []string{limiterKey(identity)},
		cutoff, limit, now.UnixNano(), member, expiry).Int()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check: %w", err)
	}

	if res == 0 {
		return Decision{Allowed: false, RetryAfter: window}, nil
	}
	return Decision{Allowed: true}, nil
}

// Remaining implements Limiter.
func (l *RedisLimiter) Remaining(ctx context.Context, identity string, limit int, window time.Duration) (int, error) {
	key := limiterKey(identity)
	cutoff := time.Now().Add(-window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit remaining: %w", err)
	}

	remaining := limit - int(card.Val())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, identity string) error {
	if err := l.client.Del(ctx, limiterKey(identity)).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
