// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger. Resident
// traffic is full of personal data (phone numbers in provider addresses,
// e-mails, message text), so nothing reaches the log before it has been
// scrubbed:
//
//   - request and response bodies are never logged
//   - provider addresses ("whatsapp:+52..."), phone numbers, e-mails and
//     UUID-like identifiers in the query string and headers are replaced
//   - sensitive headers (Authorization, Cookie, the provider signature, plus
//     any configured extras) are masked completely
//
// The middleware also attaches the request-scoped logger read by LoggerFrom.
package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced with "[REDACTED]".
type RedactOptions struct {
	MaskHeaders []string
}

var (
	uuidRE     = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	addressRE  = regexp.MustCompile(`(?i)\b(?:whatsapp|sms):\+?[0-9]{6,15}\b`)
	emailRE    = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE    = regexp.MustCompile(`\+?\b(?:\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	maskedBase = []string{"authorization", "cookie", "set-cookie", strings.ToLower(HeaderTwilioSignature)}
)

// Redact scrubs identifiers and contact details from s. UUIDs go first so the
// loose phone pattern cannot eat their digit groups; provider addresses go
// before bare phones so the channel prefix stays readable.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = addressRE.ReplaceAllStringFunc(s, func(m string) string {
		ch, _, _ := strings.Cut(m, ":")
		return strings.ToLower(ch) + ":[REDACTED:phone]"
	})
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	s = phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactingLogger returns a Gin middleware that attaches a request-scoped
// logger and emits one scrubbed access log line per request: INFO by default,
// WARN for 4xx and ERROR for 5xx or when handlers recorded gin errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := make(map[string]struct{}, len(maskedBase)+len(opts.MaskHeaders))
	for _, h := range append(maskedBase, opts.MaskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := mask[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = Redact(strings.Join(vv, ", "))
		}
		query := c.Request.URL.RawQuery
		if q, err := url.QueryUnescape(query); err == nil {
			query = q
		}
		query = Redact(query)

		c.Next()

		status := c.Writer.Status()
		lg := LoggerFrom(c) // handlers may have enriched it (WithBuilding)
		ev := lg.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = lg.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", Redact(c.Errors.String()))
			}
		case status >= 400:
			ev = lg.Warn()
		}

		ev.
			Str("query", query).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
