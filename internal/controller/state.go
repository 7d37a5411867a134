package controller

import (
	"resumeStudio/internal/auth"
	"resumeStudio/internal/resume"
)

// State 是控制器状态的只读快照。
type State struct {
	IsAuthenticated   bool
	CurrentPage       Page
	Identity          *auth.Identity
	EditingResume     *resume.Resume
	IsLoading         bool
	VerificationEmail string
	// Notice 是一次性的提示信息，例如验证成功后提示重新登录。
	Notice string
	// DraftVersion 每产生一份新草稿递增一次，用于区分同一简历的先后两次编辑。
	DraftVersion uint64
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		identity := *s.Identity
		out.Identity = &identity
	}
	if s.EditingResume != nil {
		draft := s.EditingResume.Clone()
		out.EditingResume = &draft
	}
	return out
}

// ResolveView 由状态推导出应渲染的视图，以及与之相容的页面。
// 返回的页面与 s.CurrentPage 不同时，调用方需要执行一次纠正跳转；
// 纠正后再次求值必然得到相同页面，不会继续跳转。
func ResolveView(s State) (Page, ViewKind) {
	if s.IsLoading {
		return s.CurrentPage, ViewLoading
	}

	if s.IsAuthenticated {
		switch s.CurrentPage {
		case PageDashboard:
			return PageDashboard, ViewDashboard
		case PageTemplateSelection:
			return PageTemplateSelection, ViewTemplateSelection
		case PageEditor:
			if s.EditingResume != nil {
				return PageEditor, ViewEditor
			}
			return PageDashboard, ViewDashboard
		default:
			// 已登录用户访问公开页或未知页时回到控制台。
			return PageDashboard, ViewDashboard
		}
	}

	switch s.CurrentPage {
	case PageLanding:
		return PageLanding, ViewLanding
	case PageAuth:
		return PageAuth, ViewAuth
	case PageVerification:
		return PageVerification, ViewVerification
	default:
		return PageLanding, ViewLanding
	}
}
