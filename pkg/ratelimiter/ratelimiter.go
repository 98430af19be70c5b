package ratelimiter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

// Limiter allows one hit per window for each (subject, action). A nil redis client disables it.
type Limiter struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

func key(subject, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", subject, action)
}

// Allow returns a *RateLimitError when the window for subject/action is still open.
func (l *Limiter) Allow(ctx context.Context, subject, action string, window time.Duration) error {
	if l == nil || l.rdb == nil || window <= 0 {
		return nil
	}

	wasSet, err := l.rdb.SetNX(ctx, key(subject, action), "locked", window).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if wasSet {
		return nil
	}

	ttl, _ := l.rdb.TTL(ctx, key(subject, action)).Result()
	return &RateLimitError{
		Message:    fmt.Sprintf("too many requests, retry in %.0f seconds", ttl.Seconds()),
		RetryAfter: ttl,
	}
}

func (l *Limiter) Clear(ctx context.Context, subject, action string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, key(subject, action)).Err()
}

// PerClient limits by client IP, or by user_id when the auth middleware already ran.
func (l *Limiter) PerClient(action string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString("user_id")
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		err := l.Allow(c.Request.Context(), subject, action, window)
		if err == nil {
			c.Next()
			return
		}

		if rl, ok := err.(*RateLimitError); ok {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rl.RetryAfter.Seconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rl.Message})
			return
		}

		// redis trouble should not lock users out
		c.Next()
	}
}
