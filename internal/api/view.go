package api

import (
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/richtext"
	"resumeStudio/internal/session"
)

const excerptLength = 140

// viewResponse 是解析后视图的 JSON 形式，只携带该视图需要的数据。
type viewResponse struct {
	View              controller.ViewKind   `json:"view"`
	Page              controller.Page       `json:"page"`
	Corrected         bool                  `json:"corrected,omitempty"`
	Authenticated     bool                  `json:"authenticated"`
	User              *userView             `json:"user,omitempty"`
	Notice            string                `json:"notice,omitempty"`
	VerificationEmail string                `json:"verification_email,omitempty"`
	Resumes           []resumeCard          `json:"resumes,omitempty"`
	Templates         []resume.TemplateInfo `json:"templates,omitempty"`
	Draft             *draftView            `json:"draft,omitempty"`
	// Changed 仅出现在富文本编辑的响应中。
	Changed *bool `json:"changed,omitempty"`
}

type userView struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

type resumeCard struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Template resume.TemplateID `json:"template"`
	Excerpt  string            `json:"excerpt"`
}

type draftView struct {
	Resume resume.Resume     `json:"resume"`
	Fields map[string]string `json:"fields"`
}

// buildView 把控制器视图渲染为响应。编辑器视图的草稿取自编辑会话，其中包含尚未保存的富文本编辑。
func buildView(entry *session.Entry, view controller.View, opts []editor.Option) viewResponse {
	s := view.State
	out := viewResponse{
		View:          view.Kind,
		Page:          s.CurrentPage,
		Corrected:     view.Corrected,
		Authenticated: s.IsAuthenticated,
		Notice:        s.Notice,
	}
	if s.Identity != nil {
		out.User = &userView{
			Username:    s.Identity.Username,
			DisplayName: s.Identity.DisplayName(),
			Email:       s.Identity.Email,
		}
	}

	switch view.Kind {
	case controller.ViewVerification:
		out.VerificationEmail = s.VerificationEmail
	case controller.ViewDashboard:
		resumes := entry.Controller.Resumes()
		out.Resumes = make([]resumeCard, 0, len(resumes))
		for _, r := range resumes {
			out.Resumes = append(out.Resumes, resumeCard{
				ID:       r.ID,
				Title:    r.Title,
				Template: r.Template,
				Excerpt:  richtext.Excerpt(r.Summary, excerptLength),
			})
		}
	case controller.ViewTemplateSelection:
		out.Templates = resume.Templates()
	case controller.ViewEditor:
		if ed, ok := entry.Editor(opts...); ok {
			out.Draft = &draftView{Resume: ed.Resume(), Fields: ed.Fields()}
		}
	}
	return out
}
