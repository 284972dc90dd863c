package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds issuance throttle tuning parameters.
type Config struct {
	MaxIssues int
	Window    time.Duration
}

// Limiter enforces a per-subject token issuance budget using fixed-window
// Redis counters. It counts mints only; it never stores or shares tokens.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckIssue records one issuance attempt for the subject and returns
// [ErrRateLimited] when the window budget is exhausted.
func (l *Limiter) CheckIssue(ctx context.Context, subject string) error {
	if l.config.MaxIssues <= 0 {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, issueKey(subject), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxIssues) {
		return ErrRateLimited
	}

	return nil
}

// IssueCount returns the current window's issuance counter for a subject.
// Missing keys return zero.
func (l *Limiter) IssueCount(ctx context.Context, subject string) (int, error) {
	count, err := l.redis.Get(ctx, issueKey(subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the issuance counter for a subject.
func (l *Limiter) Reset(ctx context.Context, subject string) error {
	if err := l.redis.Del(ctx, issueKey(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func issueKey(subject string) string {
	return "sc:issue:" + subject
}
