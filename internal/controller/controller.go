// Package controller owns navigation and authentication-derived view state
// for a single user session.
//
// The current page never decides the rendered view on its own: Resolve
// combines it with the authentication status and the editing draft, and
// corrects any page that is illegal for that combination. Every mutation
// goes through a Controller method; callers only ever see snapshots.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/resume"
)

// VerificationNotice 在完成邮箱验证后提示用户重新登录。
const VerificationNotice = "Verification successful! Please sign in."

var (
	ErrMissingResumeID   = errors.New("resume id is required")
	ErrTemplateImmutable = errors.New("resume template cannot change")
	ErrStaleDraft        = errors.New("draft is no longer being edited")
)

// Gateway 是外部身份系统暴露给控制器的能力。
type Gateway interface {
	CheckCurrentIdentity(ctx context.Context) (*auth.Identity, error)
	SignOut(ctx context.Context) error
}

// Store 是会话内简历集合。
type Store interface {
	Upsert(r resume.Resume)
	FindByID(id string) (resume.Resume, bool)
	List() []resume.Resume
}

// Recorder 观察页面切换，用于指标采集。
type Recorder interface {
	RecordTransition(from, to Page, reason Reason)
}

// View 是一次视图解析的结果。
type View struct {
	Kind ViewKind
	// Corrected 表示本次解析触发了纠正跳转。
	Corrected bool
	State     State
}

// Controller 是单个会话的导航/认证状态机，方法可被并发调用。
type Controller struct {
	gateway  Gateway
	store    Store
	logger   *slog.Logger
	recorder Recorder
	checks   singleflight.Group

	mu          sync.Mutex
	state       State
	loading     int
	initialized bool
	watchers    map[int]chan struct{}
	nextID      int
}

// Option 配置 Controller。
type Option func(*Controller)

// WithStore 指定简历集合，默认为新的内存集合。
func WithStore(store Store) Option {
	return func(c *Controller) { c.store = store }
}

// WithLogger 指定日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRecorder 指定页面切换观察者。
func WithRecorder(recorder Recorder) Option {
	return func(c *Controller) { c.recorder = recorder }
}

// New 创建控制器：停在 Landing，未登录，且在 Initialize 完成前处于加载中。
func New(gateway Gateway, opts ...Option) *Controller {
	c := &Controller{
		gateway:  gateway,
		logger:   slog.Default(),
		state:    State{CurrentPage: PageLanding},
		loading:  1,
		watchers: make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = resume.NewCollection()
	}
	c.state.IsLoading = true
	return c
}

// Initialize 查询一次当前身份。它是唯一的隐式入口，不改变当前页面。
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.initialized {
		c.beginLoadingLocked()
	}
	// 首次调用时沿用 New 计入的那次加载。
	c.initialized = true
	c.mu.Unlock()

	c.checkIdentity(ctx)

	c.mu.Lock()
	c.endLoadingLocked()
	c.mu.Unlock()
}

// CompleteLogin 在凭据校验成功后重新查询身份；成功则进入控制台，失败则停留在当前页。
func (c *Controller) CompleteLogin(ctx context.Context) bool {
	c.mu.Lock()
	c.beginLoadingLocked()
	c.mu.Unlock()

	ok := c.checkIdentity(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.setPageLocked(PageDashboard, ReasonLogin)
	}
	c.endLoadingLocked()
	return ok
}

// Logout 调用网关退出。失败时状态保持不变（用户仍显示为已登录），错误会被记录并返回。
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.gateway.SignOut(ctx); err != nil {
		c.logger.Warn("sign out failed", slog.Any("error", err))
		return fmt.Errorf("logout: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsAuthenticated = false
	c.state.Identity = nil
	c.setPageLocked(PageLanding, ReasonLogout)
	return nil
}

// Navigate 无条件切换页面；鉴权约束在 Resolve 时生效。
func (c *Controller) Navigate(page Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPageLocked(page, ReasonNavigate)
}

// BeginVerification 记录待验证邮箱并进入验证页。
func (c *Controller) BeginVerification(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.VerificationEmail = email
	c.setPageLocked(PageVerification, ReasonVerification)
}

// CompleteVerification 清除待验证邮箱并回到登录页；身份系统要求验证后重新登录。
func (c *Controller) CompleteVerification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.VerificationEmail = ""
	c.setPageLocked(PageAuth, ReasonVerification)
	c.state.Notice = VerificationNotice
}

// StartNewResume 进入模板选择页。
func (c *Controller) StartNewResume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPageLocked(PageTemplateSelection, ReasonNewResume)
}

// SelectTemplate 以所选模板创建新简历作为草稿并进入编辑器。新简历在保存前不会进入集合。
func (c *Controller) SelectTemplate(template resume.TemplateID) (resume.Resume, error) {
	if !template.Valid() {
		return resume.Resume{}, fmt.Errorf("%w: %q", resume.ErrUnknownTemplate, template)
	}

	draft := resume.New(template)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPageLocked(PageEditor, ReasonNewResume)
	c.state.EditingResume = &draft
	c.state.DraftVersion++
	return draft.Clone(), nil
}

// EditResume 以集合中指定简历的副本作为草稿进入编辑器。ID 不存在时什么也不做并返回 false。
func (c *Controller) EditResume(id string) bool {
	found, ok := c.store.FindByID(id)
	if !ok {
		c.logger.Debug("edit resume: id not found", slog.String("resume_id", id))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPageLocked(PageEditor, ReasonEdit)
	draft := found.Clone()
	c.state.EditingResume = &draft
	c.state.DraftVersion++
	return true
}

// SaveResume 将简历写回集合（按 ID 覆盖或追加），清除草稿并回到控制台。
func (c *Controller) SaveResume(r resume.Resume) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked(r)
}

// SaveDraft 与 SaveResume 相同，但只在 version 仍是当前草稿的版本时保存。
// 草稿已被丢弃或被新草稿替换时返回 ErrStaleDraft，状态不变。
func (c *Controller) SaveDraft(r resume.Resume, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.EditingResume == nil || c.state.DraftVersion != version {
		return fmt.Errorf("%w: version %d", ErrStaleDraft, version)
	}
	return c.saveLocked(r)
}

func (c *Controller) saveLocked(r resume.Resume) error {
	if r.ID == "" {
		return ErrMissingResumeID
	}
	if template, ok := c.knownTemplateLocked(r.ID); ok && template != r.Template {
		return fmt.Errorf("%w: %s", ErrTemplateImmutable, r.ID)
	}

	c.store.Upsert(r)
	c.setPageLocked(PageDashboard, ReasonSave)
	c.logger.Info("resume saved", slog.String("resume_id", r.ID))
	return nil
}

// Resolve 解析当前视图，必要时执行一次纠正跳转。
func (c *Controller) Resolve() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	page, kind := ResolveView(c.state)
	corrected := page != c.state.CurrentPage
	if corrected {
		c.logger.Debug("corrective transition",
			slog.String("from", string(c.state.CurrentPage)),
			slog.String("to", string(page)),
			slog.Bool("authenticated", c.state.IsAuthenticated),
		)
		c.setPageLocked(page, ReasonCorrection)
	}

	return View{Kind: kind, Corrected: corrected, State: c.state.clone()}
}

// State 返回状态快照，不触发纠正。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Resumes 返回集合快照。
func (c *Controller) Resumes() []resume.Resume {
	return c.store.List()
}

// Subscribe 返回一个在每次状态变化后收到信号的通道，以及取消订阅函数。
// 信号会合并：订阅者只保证在变化后至少收到一次通知。
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan struct{}, 1)
	c.watchers[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if w, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(w)
		}
	}
}

// checkIdentity 查询网关并应用结果；同一控制器上并发的查询会合并为一次。
// 合并后的查询不随任何一个调用方的取消而中断，否则会连带其他调用方被判为未登录。
func (c *Controller) checkIdentity(ctx context.Context) bool {
	shared := context.WithoutCancel(ctx)
	v, _, _ := c.checks.Do("identity", func() (any, error) {
		identity, err := c.gateway.CheckCurrentIdentity(shared)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil || identity == nil {
			c.logger.Debug("identity check failed", slog.Any("error", err))
			c.state.IsAuthenticated = false
			c.state.Identity = nil
			c.notifyLocked()
			return false, nil
		}
		c.state.IsAuthenticated = true
		c.state.Identity = identity
		c.notifyLocked()
		return true, nil
	})
	ok, _ := v.(bool)
	return ok
}

func (c *Controller) knownTemplateLocked(id string) (resume.TemplateID, bool) {
	if stored, ok := c.store.FindByID(id); ok {
		return stored.Template, true
	}
	if d := c.state.EditingResume; d != nil && d.ID == id {
		return d.Template, true
	}
	return "", false
}

// setPageLocked 切换页面。草稿只在编辑器页存在，离开编辑器即丢弃。
func (c *Controller) setPageLocked(to Page, reason Reason) {
	from := c.state.CurrentPage
	c.state.CurrentPage = to
	c.state.Notice = ""
	if to != PageEditor {
		c.state.EditingResume = nil
	}
	if c.recorder != nil && from != to {
		c.recorder.RecordTransition(from, to, reason)
	}
	c.notifyLocked()
}

func (c *Controller) beginLoadingLocked() {
	c.loading++
	c.state.IsLoading = true
	c.notifyLocked()
}

func (c *Controller) endLoadingLocked() {
	if c.loading > 0 {
		c.loading--
	}
	c.state.IsLoading = c.loading > 0
	c.notifyLocked()
}

func (c *Controller) notifyLocked() {
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
