package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
	"golang.org/x/time/rate"
)

// visitorIdleTimeout is how long an unseen client IP keeps its bucket
const visitorIdleTimeout = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors holds one token bucket per client IP. Buckets idle for longer
// than idle are swept at most once per idle period.
type visitors struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*visitor
}

func newVisitors(r rate.Limit, b int, idle time.Duration) *visitors {
	return &visitors{
		limit:     r,
		burst:     b,
		idle:      idle,
		now:       time.Now,
		lastSweep: time.Now(),
		entries:   make(map[string]*visitor),
	}
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if now.Sub(v.lastSweep) >= v.idle {
		for key, entry := range v.entries {
			if now.Sub(entry.lastSeen) >= v.idle {
				delete(v.entries, key)
			}
		}
		v.lastSweep = now
	}

	entry, exists := v.entries[ip]
	if !exists {
		entry = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// RateLimiter limits each client IP with an in-process token bucket
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return rateLimit(newVisitors(r, b, visitorIdleTimeout))
}

func rateLimit(v *visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).Allow() {
			apierrors.RespondWithError(c, http.StatusTooManyRequests, apierrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedisRateLimiter shares a sliding-window limit between server instances
type RedisRateLimiter struct {
	redis   *redis.Client
	limit   int
	window  time.Duration
	keyFunc func(*gin.Context) string
}

// NewRedisRateLimiter allows limit requests per window for each key
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, keyFunc func(*gin.Context) string) *RedisRateLimiter {
	if keyFunc == nil {
		keyFunc = IPKeyFunc
	}
	return &RedisRateLimiter{
		redis:   client,
		limit:   limit,
		window:  window,
		keyFunc: keyFunc,
	}
}

// Middleware returns the gin handler. Redis failures let the request through.
func (rl *RedisRateLimiter) Middleware(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", name, rl.keyFunc(c))

		allowed, err := rl.allow(c.Request.Context(), key)
		if err != nil {
			log.Printf("rate limiter unavailable: %v", err)
			c.Header("X-RateLimit-Error", "true")
			c.Next()
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			apierrors.RespondWithError(c, http.StatusTooManyRequests, apierrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RedisRateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - rl.window.Nanoseconds()

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, key, rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	return countCmd.Val() < int64(rl.limit), nil
}

// IPKeyFunc keys the limit by client IP
func IPKeyFunc(c *gin.Context) string {
	return c.ClientIP()
}

// UserKeyFunc keys the limit by the session user, falling back to the client IP
func UserKeyFunc(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok {
		return fmt.Sprintf("user:%d", userID)
	}
	return c.ClientIP()
}
