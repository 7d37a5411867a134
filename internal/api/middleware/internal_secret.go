package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/errcode"
)

// MetricsTokenMiddleware 用共享令牌保护内部端点（如 /metrics）。token 为空时不做校验。
func MetricsTokenMiddleware(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		// 只接受 Header，避免令牌出现在 query 中被记录。
		header := c.GetHeader("Authorization")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") ||
			subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": errcode.InvalidCredentials})
			return
		}
		c.Next()
	}
}
