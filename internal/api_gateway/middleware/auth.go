package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// WebhookSignatureHeader carries the shared secret on processor webhook calls
	WebhookSignatureHeader = "X-Webhook-Secret"

	bearerPrefix = "Bearer "
)

// BearerAuth guards operator routes with a shared bearer secret.
// Comparison is constant-time so the secret cannot be probed byte by byte.
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Missing bearer token"},
			})
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid bearer token"},
			})
			return
		}

		c.Next()
	}
}

// WebhookAuth verifies the shared secret the processor sends with each
// webhook delivery
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(WebhookSignatureHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid webhook secret"},
			})
			return
		}

		c.Next()
	}
}
