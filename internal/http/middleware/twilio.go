package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twilio/twilio-go/client"
)

// HeaderTwilioSignature carries the provider's request signature.
const HeaderTwilioSignature = "X-Twilio-Signature"

var webhookSignatureFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "webhook_signature_failures_total",
	Help: "Provider webhooks rejected because the signature did not verify.",
})

func init() {
	prometheus.MustRegister(webhookSignatureFailures)
}

// VerifyTwilioSignature rejects webhook calls whose X-Twilio-Signature does
// not validate against authToken (twilio-go's RequestValidator: HMAC-SHA1 of
// the full public URL plus the sorted form parameters).
//
// Semantics:
//   - publicURL is the externally visible origin the provider was configured
//     with (scheme and host, no trailing slash). When empty the request's own
//     Host header is used, which only holds without a rewriting proxy.
//   - A missing header or unparsable form is rejected like a bad signature:
//     403 with the standard error envelope, and webhook_signature_failures_total
//     is incremented.
//   - enabled=false passes everything through.
//
// Usage:
//
//	r.POST("/webhooks/whatsapp",
//		middleware.VerifyTwilioSignature(cfg.Twilio.VerifySignature, cfg.Twilio.AuthToken, cfg.Twilio.PublicURL),
//		h.WhatsAppWebhook,
//	)
func VerifyTwilioSignature(enabled bool, authToken, publicURL string) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderTwilioSignature)
		if err := c.Request.ParseForm(); err != nil || got == "" {
			rejectSignature(c)
			return
		}

		origin := publicURL
		if origin == "" {
			scheme := "http"
			if isHTTPS(c.Request) {
				scheme = "https"
			}
			origin = scheme + "://" + c.Request.Host
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
		if !validator.Validate(origin+c.Request.URL.RequestURI(), params, got) {
			rejectSignature(c)
			return
		}
		c.Next()
	}
}

func rejectSignature(c *gin.Context) {
	webhookSignatureFailures.Inc()
	LoggerFrom(c).Warn().Msg("webhook signature rejected")
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       "forbidden",
		"message":    "invalid webhook signature",
	})
}
