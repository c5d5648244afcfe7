package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireBearer admits only requests carrying "Authorization: Bearer <token>".
// Anything else gets 401 with the standard error envelope. The header is
// masked by RedactingLogger, so the token never reaches the logs.
//
// Usage:
//
//	r.GET("/ws/review", middleware.RequireBearer(cfg.Security.ReviewToken), h.ReviewFeed)
func RequireBearer(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			LoggerFrom(c).Warn().Msg("unauthorized request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "unauthorized",
				"message":    "missing or invalid bearer token",
			})
			return
		}
		c.Next()
	}
}
