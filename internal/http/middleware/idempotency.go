// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for the JSON intake endpoint. It
// validates an Idempotency-Key request header, looks up whether the same
// (scope, key) pair already produced a stored message, and annotates the
// request context so the handler can replay the earlier outcome instead of
// running the intake pipeline twice. Replays also bypass rate limiting.
//
// Provider webhooks do not use this header; their handler deduplicates on the
// provider message id directly, in the "whatsapp" scope.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey     = "idem.key"
	ctxKeyIdemScope   = "idem.scope"
	ctxKeyIdemMessage = "idem.message" // stored message id of a replay
	ctxKeyRateBypass  = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s := asString(v)
	return s, s != ""
}

// GetIdempotencyScope returns the scope the key was validated in.
func GetIdempotencyScope(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemScope)
	return asString(v)
}

// ReplayedMessageID returns the stored message id when this request replays
// an already processed one.
func ReplayedMessageID(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemMessage)
	s := asString(v)
	return s, s != ""
}

// IsReplay reports whether the request replays an already processed one.
func IsReplay(c *gin.Context) bool {
	_, ok := ReplayedMessageID(c)
	return ok
}

// BuildingScope is the idempotency scope of building-scoped API calls.
func BuildingScope(buildingID string) string { return "building:" + buildingID }

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope derives the key namespace; defaults to BuildingScope(:id).
	Scope func(*gin.Context) string
}

// IdempotencyLookup returns the message id stored for (scope, key) when a
// still-valid record exists. Lookup errors are treated as a miss.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (messageID string, found bool, err error)

// IdempotencyValidator validates and stashes the Idempotency-Key header.
//
//   - absent header: no-op
//   - invalid header: 400 with code "bad_idempotency_key"
//   - lookup hit: the stored message id is stashed and rate limiting skipped
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = func(c *gin.Context) string { return BuildingScope(c.Param("id")) }
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		scope := scopeOf(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			if id, found, err := lookup(c.Request.Context(), scope, key, time.Now().UTC()); err == nil && found && id != "" {
				c.Set(ctxKeyIdemMessage, id)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
