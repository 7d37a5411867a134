// Package session maps browser sessions to their controllers.
//
// Each session owns one navigation controller, the identity gateway holding
// its tokens, and the editor bound to the current draft. Sessions live only
// in memory and are evicted after a period of inactivity.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
)

var ErrNotFound = errors.New("session not found")

// Gateway 是会话持有的身份网关：除控制器所需能力外，还能挂载登录得到的令牌。
type Gateway interface {
	controller.Gateway
	Attach(pair auth.TokenPair)
}

// Builder 为新会话创建网关与控制器。
type Builder func(id string) (Gateway, *controller.Controller)

// Entry 是一个浏览器会话。
type Entry struct {
	ID         string
	Controller *controller.Controller
	Gateway    Gateway

	lastSeen atomic.Int64

	mu           sync.Mutex
	editor       *editor.Session
	draftVersion uint64
}

// Editor 返回绑定当前草稿的编辑会话。控制器不在编辑器页或没有草稿时返回 false；
// 控制器产生新草稿后会重新绑定，之前未保存的编辑随之丢弃。
func (e *Entry) Editor(opts ...editor.Option) (*editor.Session, bool) {
	state := e.Controller.State()

	e.mu.Lock()
	defer e.mu.Unlock()

	if state.CurrentPage != controller.PageEditor || state.EditingResume == nil {
		e.editor = nil
		return nil, false
	}
	if e.editor == nil || e.draftVersion != state.DraftVersion {
		opts = append(opts[:len(opts):len(opts)], editor.WithVersion(state.DraftVersion))
		e.editor = editor.New(*state.EditingResume, opts...)
		e.draftVersion = state.DraftVersion
	}
	return e.editor, true
}

// LastSeen 返回最近一次访问时间。
func (e *Entry) LastSeen() time.Time {
	return time.Unix(0, e.lastSeen.Load())
}

// Registry 保存所有活跃会话，方法可被并发调用。
type Registry struct {
	build   Builder
	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry 创建会话表。idleTTL <= 0 表示永不过期。
func NewRegistry(build Builder, idleTTL time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		build:   build,
		idleTTL: idleTTL,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
}

// Create 新建会话并完成一次初始身份查询。
func (r *Registry) Create(ctx context.Context) (*Entry, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	gateway, ctrl := r.build(id)
	e := &Entry{ID: id, Controller: ctrl, Gateway: gateway}
	e.lastSeen.Store(r.now().UnixNano())

	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()

	ctrl.Initialize(ctx)
	r.logger.Debug("session created", slog.String("session_id_prefix", id[:8]))
	return e, nil
}

// Get 查找会话并刷新其最近访问时间。
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if r.expired(e) {
		r.Delete(id)
		return nil, ErrNotFound
	}
	e.lastSeen.Store(r.now().UnixNano())
	return e, nil
}

// Delete 移除会话。
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len 返回活跃会话数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep 清理空闲超时的会话，返回清理数量。
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Info("idle sessions evicted", slog.Int("count", evicted), slog.Int("remaining", len(r.entries)))
	}
	return evicted
}

// Run 周期性执行 Sweep，直到 ctx 结束。
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) expired(e *Entry) bool {
	return r.idleTTL > 0 && r.now().Sub(e.LastSeen()) > r.idleTTL
}
