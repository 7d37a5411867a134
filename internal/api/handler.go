package api

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/auth"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/session"
)

// IdentityProvider 是认证视图依赖的身份服务能力，*auth.IdentityService 满足该接口。
type IdentityProvider interface {
	SignUp(ctx context.Context, in auth.SignUpInput) error
	ResendCode(ctx context.Context, email string) error
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, username, password, clientKey string) (auth.TokenPair, error)
}

// viewer 提供各处理器共用的视图解析、响应与门控。
type viewer struct {
	editorOpts []editor.Option
}

// respond 解析视图（必要时纠正）并以 200 返回。
func (v viewer) respond(c *gin.Context, entry *session.Entry) {
	c.JSON(http.StatusOK, v.render(entry))
}

// fail 返回错误，并附带解析后的视图。
func (v viewer) fail(c *gin.Context, entry *session.Entry, status, code int, msg string) {
	ErrorWithView(c, status, code, msg, v.render(entry))
}

func (v viewer) render(entry *session.Entry) viewResponse {
	return buildView(entry, entry.Controller.Resolve(), v.editorOpts)
}

// requireView 只放行当前视图属于 allowed 的请求；否则返回 409 与当前视图。
// 页面请求与客户端看到的页面不一致时（例如会话过期后的旧页面），以服务端状态为准。
func (v viewer) requireView(allowed ...controller.ViewKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := middleware.SessionFromContext(c)
		if entry == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": errcode.SystemError})
			return
		}

		view := entry.Controller.Resolve()
		if slices.Contains(allowed, view.Kind) {
			c.Next()
			return
		}

		metrics.RecordViewConflict(c)
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error": "action not available in the current view",
			"code":  errcode.ViewConflict,
			"view":  buildView(entry, view, v.editorOpts),
		})
	}
}
