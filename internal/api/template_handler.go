package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/resume"
)

// TemplateHandler 负责模板目录与模板选择。
type TemplateHandler struct {
	viewer
}

// NewTemplateHandler 构造处理器。
func NewTemplateHandler(v viewer) *TemplateHandler {
	return &TemplateHandler{viewer: v}
}

// GET /v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": resume.Templates()})
}

// POST /v1/templates/:id/select
// 以所选模板创建新草稿并进入编辑器；新简历在保存前不进入集合。
func (h *TemplateHandler) Select(c *gin.Context) {
	entry := middleware.SessionFromContext(c)

	id, err := resume.ParseTemplateID(c.Param("id"))
	if err == nil {
		_, err = entry.Controller.SelectTemplate(id)
	}
	if errors.Is(err, resume.ErrUnknownTemplate) {
		h.fail(c, entry, http.StatusBadRequest, errcode.InvalidRequest, err.Error())
		return
	}
	if err != nil {
		Internal(c)
		return
	}
	h.respond(c, entry)
}
