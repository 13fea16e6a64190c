package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/srp-dev/consolidation-api/internal/upstream"
)

// SessionForward copies the caller's backend session cookie into the request
// context so upstream fetches carry the same credentials.
func SessionForward() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookie := c.GetHeader("Cookie"); cookie != "" {
			c.Request = c.Request.WithContext(upstream.WithSession(c.Request.Context(), cookie))
		}
		c.Next()
	}
}
