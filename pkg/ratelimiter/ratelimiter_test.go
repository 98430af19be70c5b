package ratelimiter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb), mr
}

func TestAllowBlocksUntilWindowExpires(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "u1", "login", time.Minute))

	err := l.Allow(ctx, "u1", "login", time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Greater(t, rl.RetryAfter, time.Duration(0))

	// other subjects and actions are independent
	require.NoError(t, l.Allow(ctx, "u2", "login", time.Minute))
	require.NoError(t, l.Allow(ctx, "u1", "apply", time.Minute))

	mr.FastForward(time.Minute + time.Second)
	require.NoError(t, l.Allow(ctx, "u1", "login", time.Minute))
}

func TestClearReopensWindow(t *testing.T) {
	l, _ := newLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "u1", "apply", time.Hour))
	require.NoError(t, l.Clear(ctx, "u1", "apply"))
	require.NoError(t, l.Allow(ctx, "u1", "apply", time.Hour))
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Allow(context.Background(), "u", "a", time.Hour))
	assert.NoError(t, New(nil).Allow(context.Background(), "u", "a", time.Hour))
}

func TestPerClientMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newLimiter(t)

	r := gin.New()
	r.POST("/login", l.PerClient("login", time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
