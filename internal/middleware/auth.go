package middleware

import (
	"net/http"

	"github.com/botledger/botgate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	HeaderApiKey      = "X-Api-Key"
	ContextProjectKey = "project"
)

// AuthMiddleware resolves the X-Api-Key credential to an active project.
// An invalid key and a deactivated project produce the identical response so
// deactivated tenants cannot be enumerated.
func AuthMiddleware(directory *service.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderApiKey)
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Api-Key header required"})
			c.Abort()
			return
		}

		project, ok := directory.Resolve(c.Request.Context(), apiKey)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key or inactive project"})
			c.Abort()
			return
		}

		// 将项目信息存入上下文
		c.Set(ContextProjectKey, project)
		c.Next()
	}
}
