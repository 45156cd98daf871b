package http

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// AttemptLimiter throttles verification attempts per client. It is advisory only: it never
// grants access, it only slows down guessing.
type AttemptLimiter interface {
	// Allow reports whether one more attempt is permitted for key and, if not, how long the
	// caller should wait.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// memoryAttemptLimiter holds per-client rate limiters with periodic cleanup.
type memoryAttemptLimiter struct {
	limiters sync.Map // map[string]*attemptLimiterEntry
	rps      float64
	burst    int
}

// attemptLimiterEntry holds a rate limiter and last access time for cleanup.
type attemptLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// NewMemoryAttemptLimiter creates a process-local limiter. Stale entries are removed until
// ctx is cancelled.
func NewMemoryAttemptLimiter(ctx context.Context, rps float64, burst int) AttemptLimiter {
	l := &memoryAttemptLimiter{rps: rps, burst: burst}
	go l.cleanupStale(ctx, 5*time.Minute)
	return l
}

func (l *memoryAttemptLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	limiter := l.getLimiter(key)
	if limiter.Allow() {
		return true, 0, nil
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay, nil
}

func (l *memoryAttemptLimiter) getLimiter(key string) *rate.Limiter {
	if val, ok := l.limiters.Load(key); ok {
		entry := val.(*attemptLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &attemptLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(l.rps), l.burst),
		lastAccess: time.Now(),
	}
	actual, _ := l.limiters.LoadOrStore(key, entry)
	return actual.(*attemptLimiterEntry).limiter
}

// cleanupStale removes limiters not accessed in the last hour.
func (l *memoryAttemptLimiter) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := time.Now().Add(-1 * time.Hour)
			l.limiters.Range(func(key, value any) bool {
				entry := value.(*attemptLimiterEntry)
				entry.mu.Lock()
				stale := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()

				if stale {
					l.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

// tokenBucketScript refills and takes one token atomically.
// KEYS[1] = bucket key
// ARGV[1] = capacity (burst)
// ARGV[2] = refill rate (tokens per second)
// ARGV[3] = now (unix milliseconds)
// Returns {allowed (1/0), milliseconds until the next token}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local info = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(info[1])
local last_refill = tonumber(info[2])

if not tokens then
	tokens = capacity
	last_refill = now
end

local delta = math.max(0, now - last_refill) / 1000
local filled = math.min(capacity, tokens + (delta * rate))

local allowed = 0
local wait = 0
if filled >= 1 then
	allowed = 1
	filled = filled - 1
else
	wait = math.ceil(((1 - filled) / rate) * 1000)
end

redis.call("HSET", key, "tokens", tostring(filled), "last_refill", now)
redis.call("PEXPIRE", key, math.ceil((capacity / rate) * 1000) + 1000)

return {allowed, wait}
`)

// redisAttemptLimiter shares token buckets between service instances.
type redisAttemptLimiter struct {
	client redis.Scripter
	prefix string
	rps    float64
	burst  int
}

// NewRedisAttemptLimiter creates a limiter backed by a redis token bucket.
func NewRedisAttemptLimiter(client redis.Scripter, prefix string, rps float64, burst int) AttemptLimiter {
	return &redisAttemptLimiter{
		client: client,
		prefix: prefix,
		rps:    rps,
		burst:  burst,
	}
}

func (l *redisAttemptLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now().UnixMilli()

	result, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key}, l.burst, l.rps, now).
		Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected token bucket reply: %v", result)
	}

	return result[0] == 1, time.Duration(result[1]) * time.Millisecond, nil
}

// AttemptRateLimitMiddleware throttles verification attempts per client IP.
//
// Uses c.ClientIP(), which honours X-Forwarded-For and X-Real-IP from trusted proxies.
// A limiter failure lets the request through: the guard behind it still fails closed.
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func AttemptRateLimitMiddleware(limiter AttemptLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			logger.Warn("attempt rate limiter unavailable",
				slog.String("client_ip", clientIP),
				slog.Any("error", err))
			c.Next()
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))

			logger.Debug("attempt rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Int("retry_after", seconds))

			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many authorization attempts from this IP. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
