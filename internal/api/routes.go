package api

import (
	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
	"resumeStudio/internal/richtext"
	"resumeStudio/internal/session"
)

// Dependencies 汇总路由需要的服务。
type Dependencies struct {
	Identity       IdentityProvider
	Sessions       *session.Registry
	Cookie         session.CookieOptions
	AllowedOrigins []string
	// Sanitizer 为空时富文本内容不做过滤。
	Sanitizer richtext.Sanitizer
}

// RegisterRoutes 注册 API 路由。所有 /v1 路由都绑定到 cookie 对应的会话，
// 修改状态的路由只在对应视图下可用，并返回解析后的新视图。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	var v viewer
	if deps.Sanitizer != nil {
		v.editorOpts = append(v.editorOpts, editor.WithPolicy(deps.Sanitizer))
	}

	authHandler := NewAuthHandler(deps.Identity, v)
	resumeHandler := NewResumeHandler(v)
	templateHandler := NewTemplateHandler(v)
	editorHandler := NewEditorHandler(v)
	wsHandler := NewWsHandler(v, deps.AllowedOrigins)

	signedIn := []controller.ViewKind{controller.ViewDashboard, controller.ViewTemplateSelection, controller.ViewEditor}

	v1 := router.Group("/v1")
	v1.Use(middleware.SessionMiddleware(deps.Sessions, deps.Cookie))
	{
		v1.GET("/view", resumeHandler.View)
		v1.POST("/navigate", resumeHandler.Navigate)
		v1.GET("/templates", templateHandler.List)
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/sign-up", v.requireView(controller.ViewAuth), authHandler.SignUp)
			authGroup.POST("/sign-in", v.requireView(controller.ViewAuth), authHandler.SignIn)
			authGroup.POST("/verify", v.requireView(controller.ViewVerification), authHandler.Verify)
			authGroup.POST("/resend", v.requireView(controller.ViewVerification), authHandler.Resend)
			authGroup.POST("/sign-out", v.requireView(signedIn...), authHandler.SignOut)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(v.requireView(controller.ViewDashboard))
		{
			resumeGroup.POST("/new", resumeHandler.New)
			resumeGroup.POST("/:id/edit", resumeHandler.Edit)
		}

		v1.POST("/templates/:id/select", v.requireView(controller.ViewTemplateSelection), templateHandler.Select)

		editorGroup := v1.Group("/editor")
		editorGroup.Use(v.requireView(controller.ViewEditor))
		{
			editorGroup.GET("/draft", editorHandler.Draft)
			editorGroup.PUT("/draft", editorHandler.UpdateDraft)
			editorGroup.POST("/fields/:field/input", editorHandler.Input)
			editorGroup.POST("/fields/:field/format", editorHandler.Format)
			editorGroup.POST("/save", editorHandler.Save)
			editorGroup.POST("/back", editorHandler.Back)
		}
	}
}
