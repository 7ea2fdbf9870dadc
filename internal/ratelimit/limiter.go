// Package ratelimit throttles the unauthenticated auth endpoints per client.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether another request under key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// fixedWindowScript counts hits in a window that starts on the first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return { count, ttl }
`)

// RedisLimiter is a fixed-window limiter shared by every instance using the same Redis.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisLimiter builds a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	return l.decide(vals)
}

// decide turns the script reply {count, pttl} into a Decision. A negative
// pttl means the key lost its expiry, so the full window is assumed.
func (l *RedisLimiter) decide(vals []int64) (Decision, error) {
	if len(vals) != 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script reply %v", vals)
	}
	count, ttl := vals[0], vals[1]
	if ttl < 0 {
		ttl = l.window.Milliseconds()
	}

	d := Decision{Limit: l.max, Remaining: int(math.Max(0, float64(int64(l.max)-count)))}
	if count > int64(l.max) {
		d.RetryAfter = time.Duration(ttl) * time.Millisecond
		return d, nil
	}
	d.Allowed = true
	return d, nil
}

// LocalLimiter keeps one token bucket per key in process memory.
type LocalLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter allows max requests per window per key, refilling evenly.
func NewLocalLimiter(max int, window time.Duration) *LocalLimiter {
	if max < 1 {
		max = 1
	}
	return &LocalLimiter{
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		idleTTL: 2 * window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	lim := l.get(key, now)

	d := Decision{Limit: l.burst}
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return d, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		d.RetryAfter = delay
		return d, nil
	}
	d.Allowed = true
	d.Remaining = int(lim.TokensAt(now))
	return d, nil
}

func (l *LocalLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// FallbackLimiter prefers the primary limiter and switches to the secondary
// for a call whenever the primary errors, e.g. when Redis is unreachable.
type FallbackLimiter struct {
	primary   Limiter
	secondary Limiter
	logger    *zap.Logger
}

// NewFallbackLimiter composes two limiters.
func NewFallbackLimiter(primary, secondary Limiter, logger *zap.Logger) *FallbackLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackLimiter{primary: primary, secondary: secondary, logger: logger}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := l.primary.Allow(ctx, key)
	if err == nil {
		return d, nil
	}
	l.logger.Warn("rate limiter primary failed; using local fallback", zap.Error(err))
	return l.secondary.Allow(ctx, key)
}

// New builds the limiter for the process: Redis with local fallback when a
// client is supplied, otherwise local only.
func New(client *redis.Client, max int, window time.Duration, logger *zap.Logger) Limiter {
	local := NewLocalLimiter(max, window)
	if client == nil {
		return local
	}
	return NewFallbackLimiter(NewRedisLimiter(client, max, window), local, logger)
}
