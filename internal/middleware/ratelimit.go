package middleware

import (
	"net/http"

	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/service"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware enforces the per-project token bucket. Must run after
// AuthMiddleware.
func RateLimitMiddleware(directory *service.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectVal, exists := c.Get(ContextProjectKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		project := projectVal.(*model.Project)

		limiter := directory.LimiterFor(project.ID)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
