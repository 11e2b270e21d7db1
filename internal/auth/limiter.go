package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginFailurePrefix = "auth:login:fail:"

// LoginLimiter counts failed logins per email in Redis and blocks further
// attempts once the limit is reached within the window. It fails open when
// Redis is unavailable. A nil *LoginLimiter allows everything.
type LoginLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter builds a limiter. maxAttempts <= 0 disables limiting.
func NewLoginLimiter(client redis.Cmdable, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Allow reports whether email may attempt another login.
func (l *LoginLimiter) Allow(ctx context.Context, email string) bool {
	if !l.enabled() {
		return true
	}
	failures, err := l.client.Get(ctx, loginFailureKey(email)).Int()
	if errors.Is(err, redis.Nil) {
		return true
	}
	if err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return true
	}
	return failures < l.maxAttempts
}

// RecordFailure counts a failed attempt; the window starts at the first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	key := loginFailureKey(email)
	failures, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter increment failed", zap.Error(err))
		return
	}
	if failures == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("login limiter expire failed", zap.Error(err))
		}
	}
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if !l.enabled() {
		return
	}
	if err := l.client.Del(ctx, loginFailureKey(email)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}

func (l *LoginLimiter) enabled() bool {
	return l != nil && l.client != nil && l.maxAttempts > 0
}

func loginFailureKey(email string) string {
	return loginFailurePrefix + strings.ToLower(strings.TrimSpace(email))
}
