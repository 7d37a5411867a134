package api

import (
	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/controller"
)

// ResumeHandler 负责视图查询、页面导航与控制台上的简历操作。
type ResumeHandler struct {
	viewer
}

// NewResumeHandler 构造处理器。
func NewResumeHandler(v viewer) *ResumeHandler {
	return &ResumeHandler{viewer: v}
}

// GET /v1/view
// 返回当前应渲染的视图；页面与状态不相容时在此完成纠正。
func (h *ResumeHandler) View(c *gin.Context) {
	h.respond(c, middleware.SessionFromContext(c))
}

type navigateRequest struct {
	Page controller.Page `json:"page" binding:"required"`
}

// POST /v1/navigate
// 无条件切换页面，是否允许停留由视图解析决定。
func (h *ResumeHandler) Navigate(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	entry.Controller.Navigate(req.Page)
	h.respond(c, entry)
}

// POST /v1/resumes/new
func (h *ResumeHandler) New(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	entry.Controller.StartNewResume()
	h.respond(c, entry)
}

// POST /v1/resumes/:id/edit
// ID 不存在时不做任何切换，返回未变化的视图。
func (h *ResumeHandler) Edit(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	entry.Controller.EditResume(c.Param("id"))
	h.respond(c, entry)
}
