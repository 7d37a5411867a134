package controller

// Page 是页面标识。合法取值为下列常量；从客户端收到的未知取值会原样保留，
// 并在视图解析时被纠正。
type Page string

const (
	PageLanding           Page = "landing"
	PageAuth              Page = "auth"
	PageDashboard         Page = "dashboard"
	PageTemplateSelection Page = "template_selection"
	PageEditor            Page = "editor"
	PageVerification      Page = "verification"
)

// Known 判断是否为已知页面。
func (p Page) Known() bool {
	switch p {
	case PageLanding, PageAuth, PageDashboard, PageTemplateSelection, PageEditor, PageVerification:
		return true
	}
	return false
}

// ViewKind 是实际渲染的视图。与 Page 不同，它额外包含 Loading。
type ViewKind string

const (
	ViewLoading           ViewKind = "loading"
	ViewLanding           ViewKind = "landing"
	ViewAuth              ViewKind = "auth"
	ViewVerification      ViewKind = "verification"
	ViewDashboard         ViewKind = "dashboard"
	ViewTemplateSelection ViewKind = "template_selection"
	ViewEditor            ViewKind = "editor"
)

// Reason 描述一次页面切换的来源，用于日志与指标。
type Reason string

const (
	ReasonNavigate     Reason = "navigate"
	ReasonLogin        Reason = "login"
	ReasonLogout       Reason = "logout"
	ReasonVerification Reason = "verification"
	ReasonNewResume    Reason = "new_resume"
	ReasonEdit         Reason = "edit"
	ReasonSave         Reason = "save"
	ReasonCorrection   Reason = "correction"
)
