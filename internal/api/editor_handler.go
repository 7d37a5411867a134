package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/richtext"
	"resumeStudio/internal/session"
)

// EditorHandler 负责编辑器视图：草稿读写、富文本编辑、保存与返回。
type EditorHandler struct {
	viewer
}

// NewEditorHandler 构造处理器。
func NewEditorHandler(v viewer) *EditorHandler {
	return &EditorHandler{viewer: v}
}

// withEditor 取出当前草稿的编辑会话；草稿在门控之后被并发丢弃时返回 409。
func (h *EditorHandler) withEditor(c *gin.Context) (*session.Entry, *editor.Session, bool) {
	entry := middleware.SessionFromContext(c)
	ed, ok := entry.Editor(h.editorOpts...)
	if !ok {
		h.fail(c, entry, http.StatusConflict, errcode.ViewConflict, "no draft is being edited")
		return nil, nil, false
	}
	return entry, ed, true
}

// GET /v1/editor/draft
func (h *EditorHandler) Draft(c *gin.Context) {
	entry, ed, ok := h.withEditor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"draft": draftView{Resume: ed.Resume(), Fields: ed.Fields()},
		"view":  h.render(entry),
	})
}

// PUT /v1/editor/draft
// 用表单提交的整份简历覆盖草稿，富文本字段由同步引擎协调。
func (h *EditorHandler) UpdateDraft(c *gin.Context) {
	entry, ed, ok := h.withEditor(c)
	if !ok {
		return
	}
	var body resume.Resume
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := ed.Update(body); err != nil {
		h.fail(c, entry, http.StatusBadRequest, errcode.InvalidDraft, err.Error())
		return
	}
	h.respond(c, entry)
}

type fieldInputRequest struct {
	HTML string `json:"html"`
}

// POST /v1/editor/fields/:field/input
// 客户端编辑面的内容回传；内容未变化时不算一次修改。
func (h *EditorHandler) Input(c *gin.Context) {
	entry, ed, ok := h.withEditor(c)
	if !ok {
		return
	}
	var req fieldInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	changed, err := ed.Input(c.Param("field"), req.HTML)
	if errors.Is(err, editor.ErrUnknownField) {
		h.fail(c, entry, http.StatusNotFound, errcode.ResourceMissing, err.Error())
		return
	}
	h.respondChanged(c, entry, changed)
}

type fieldFormatRequest struct {
	Command string `json:"command" binding:"required"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// POST /v1/editor/fields/:field/format
// 对选区执行格式化命令；命令未生效时 changed 为 false。
func (h *EditorHandler) Format(c *gin.Context) {
	entry, ed, ok := h.withEditor(c)
	if !ok {
		return
	}
	var req fieldFormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	cmd, err := richtext.ParseCommand(req.Command)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	changed, err := ed.Format(c.Param("field"), cmd, req.Start, req.End)
	switch {
	case errors.Is(err, editor.ErrUnknownField):
		h.fail(c, entry, http.StatusNotFound, errcode.ResourceMissing, err.Error())
		return
	case errors.Is(err, richtext.ErrInvalidSelection):
		BadRequest(c, err.Error())
		return
	}
	h.respondChanged(c, entry, changed)
}

// POST /v1/editor/save
// 请求体可选：携带简历时先覆盖草稿再保存。
func (h *EditorHandler) Save(c *gin.Context) {
	entry, ed, ok := h.withEditor(c)
	if !ok {
		return
	}
	if c.Request.ContentLength > 0 {
		var body resume.Resume
		if err := c.ShouldBindJSON(&body); err != nil {
			BadRequest(c, err.Error())
			return
		}
		if err := ed.Update(body); err != nil {
			h.fail(c, entry, http.StatusBadRequest, errcode.InvalidDraft, err.Error())
			return
		}
	}

	err := entry.Controller.SaveDraft(ed.Resume(), ed.Version())
	switch {
	case err == nil:
	case errors.Is(err, controller.ErrStaleDraft):
		h.fail(c, entry, http.StatusConflict, errcode.ViewConflict, err.Error())
		return
	case errors.Is(err, controller.ErrTemplateImmutable), errors.Is(err, controller.ErrMissingResumeID):
		h.fail(c, entry, http.StatusBadRequest, errcode.InvalidDraft, err.Error())
		return
	default:
		Internal(c)
		return
	}
	h.respond(c, entry)
}

// POST /v1/editor/back
// 返回控制台，未保存的草稿被丢弃。
func (h *EditorHandler) Back(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	entry.Controller.Navigate(controller.PageDashboard)
	h.respond(c, entry)
}

func (h *EditorHandler) respondChanged(c *gin.Context, entry *session.Entry, changed bool) {
	out := h.render(entry)
	out.Changed = &changed
	c.JSON(http.StatusOK, out)
}
