// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per sender identity and opportunistic eviction of idle buckets. It protects
// the model budget: every accepted intake request may cost one inference call.
//
// Features:
//   - Token bucket per key via golang.org/x/time/rate
//   - Pluggable key function (default: webhook sender, then building, then IP)
//   - Idle buckets evicted after ttl, checked every few thousand lookups
//   - 429 responses carry Retry-After and the standard error envelope
//
// Notes:
//   - The limiter is process-local; replicas each hold their own buckets
//   - Idempotent replays (see IdempotencyValidator) bypass it, since they
//     never reach the model
package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyBySenderOrIP prefers the provider sender address of a webhook (the
// "From" form field), then the building of building-scoped routes, and falls
// back to the client IP. Keys are prefixed so namespaces never collide.
//
// Webhooks all arrive from the provider's few egress IPs, so keying them by
// IP would let one chatty resident starve every other building.
func KeyBySenderOrIP() keyFunc {
	return func(c *gin.Context) string {
		if strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
			if from := strings.TrimSpace(c.PostForm("From")); from != "" {
				return "sender:" + from
			}
		}
		if b := BuildingFrom(c); b != "" {
			return "building:" + b + ":" + c.ClientIP()
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter. It is safe for
// concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter.
//
// Parameters:
//   - rps:   sustained tokens per second for each key
//   - burst: bucket capacity; values <= 0 are coerced to 1
//   - keyFn: identity extractor; nil means KeyBySenderOrIP()
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyBySenderOrIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent. Every 5000
// lookups idle buckets are evicted first, so an expired bucket is replaced
// rather than refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay that skips limiting.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware.
//
// Behavior:
//   - Requests flagged as idempotent replays pass through untouched
//   - Otherwise one token is taken from the caller's bucket
//   - When the bucket is empty the request is aborted with 429,
//     Retry-After: 1 and code "too_many_requests"
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
