package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/errcode"
	"resumeStudio/internal/session"
)

const sessionKey = "session"

// SessionMiddleware 按 cookie 取回会话；缺失或已过期时新建会话并下发 cookie。
func SessionMiddleware(registry *session.Registry, opts session.CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(session.CookieName); err == nil && id != "" {
			if entry, err := registry.Get(id); err == nil {
				c.Set(sessionKey, entry)
				c.Next()
				return
			}
		}

		entry, err := registry.Create(c.Request.Context())
		if err != nil {
			LoggerFromContext(c).Error("create session failed", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": errcode.SystemError})
			return
		}
		session.SetCookie(c.Writer, entry.ID, time.Time{}, opts)
		c.Set(sessionKey, entry)
		c.Next()
	}
}

// SessionFromContext 返回当前请求的会话；必须在 SessionMiddleware 之后调用。
func SessionFromContext(c *gin.Context) *session.Entry {
	if value, ok := c.Get(sessionKey); ok {
		if entry, ok := value.(*session.Entry); ok {
			return entry
		}
	}
	return nil
}
