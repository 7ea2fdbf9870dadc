package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

func TestLocalLimiterExhaustsBurst(t *testing.T) {
	ctx := context.Background()
	limiter := NewLocalLimiter(3, time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
	}

	d, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Greater(t, d.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, d.RetryAfter, 20*time.Second)

	// other keys have their own bucket
	d, err = limiter.Allow(ctx, "other")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// a refill period later one more request fits
	now = now.Add(21 * time.Second)
	d, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestLocalLimiterEvictsIdleBuckets(t *testing.T) {
	limiter := NewLocalLimiter(1, time.Second)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "a")
	now = now.Add(time.Minute)
	_, _ = limiter.Allow(context.Background(), "b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	require.Len(t, limiter.buckets, 1)
	require.Contains(t, limiter.buckets, "b")
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("redis: connection refused")
}

func TestFallbackLimiterUsesSecondaryOnError(t *testing.T) {
	local := NewLocalLimiter(1, time.Hour)
	limiter := NewFallbackLimiter(brokenLimiter{}, local, nil)

	d, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, d.Allowed)
}

func TestNewWithoutRedisIsLocal(t *testing.T) {
	_, ok := New(nil, 5, time.Minute, nil).(*LocalLimiter)
	require.True(t, ok)
}

func TestMiddlewareReturns429WithRetryAfter(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code}})
		},
	})
	app.Post("/auth/login", Middleware(NewLocalLimiter(2, time.Minute), "test"), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	statuses := make([]int, 0, 3)
	var last *http.Response
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		last = resp
	}

	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	require.NotEmpty(t, last.Header.Get(fiber.HeaderRetryAfter))
	require.Equal(t, "0", last.Header.Get("X-RateLimit-Remaining"))
}

func TestMiddlewareNilLimiterPassesThrough(t *testing.T) {
	app := fiber.New()
	app.Get("/", Middleware(nil, "test"), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRedisLimiterDecide(t *testing.T) {
	l := NewRedisLimiter(nil, 3, time.Minute)

	d, err := l.decide([]int64{1, 60000})
	require.NoError(t, err)
	require.Equal(t, Decision{Allowed: true, Limit: 3, Remaining: 2}, d)

	d, err = l.decide([]int64{3, 1500})
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Zero(t, d.Remaining)

	d, err = l.decide([]int64{4, 1500})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	// key without expiry
	d, err = l.decide([]int64{9, -1})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, time.Minute, d.RetryAfter)

	_, err = l.decide([]int64{1})
	require.Error(t, err)
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLimiterSurfacesScriptErrors(t *testing.T) {
	l := NewRedisLimiter(unreachableRedis(t), 3, time.Minute)
	_, err := l.Allow(context.Background(), "k")
	require.Error(t, err)
}

func TestNewFallsBackWhenRedisUnreachable(t *testing.T) {
	limiter := New(unreachableRedis(t), 1, time.Minute, zap.NewNop())

	d, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, d.Allowed)
}
