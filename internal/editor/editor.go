// Package editor binds the rich text fields of an editing draft to headless
// buffers, so that client edits flow through the same change detection a
// browser surface would use.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"resumeStudio/internal/resume"
	"resumeStudio/internal/richtext"
)

// FieldSummary 是个人简介字段名；工作经历描述字段名见 ExperienceField。
const FieldSummary = "summary"

const experiencePrefix = "experience:"

var (
	ErrUnknownField  = errors.New("unknown rich text field")
	ErrDraftMismatch = errors.New("draft id or template mismatch")
)

// ExperienceField 返回工作经历描述的字段名。
func ExperienceField(id string) string {
	return experiencePrefix + id
}

type binding struct {
	buffer *richtext.Buffer
	field  *richtext.Field
}

// Session 持有一份草稿副本及其富文本字段，方法可被并发调用。
type Session struct {
	policy  richtext.Sanitizer
	logger  *slog.Logger
	version uint64

	mu     sync.Mutex
	draft  resume.Resume
	fields map[string]*binding
}

// Option 配置 Session。
type Option func(*Session)

// WithPolicy 指定进入缓冲区的内容所用的过滤策略。
func WithPolicy(policy richtext.Sanitizer) Option {
	return func(s *Session) { s.policy = policy }
}

// WithVersion 记录草稿在控制器中的版本号，保存时用于确认草稿仍然有效。
func WithVersion(version uint64) Option {
	return func(s *Session) { s.version = version }
}

// WithLogger 指定日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New 以草稿的深拷贝创建编辑会话。
func New(draft resume.Resume, opts ...Option) *Session {
	s := &Session{
		logger: slog.Default(),
		draft:  draft.Clone(),
		fields: make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.bindLocked(FieldSummary, s.draft.Summary)
	for _, exp := range s.draft.Experience {
		s.bindLocked(ExperienceField(exp.ID), exp.Description)
	}
	return s
}

// Version 返回创建时记录的草稿版本号。
func (s *Session) Version() uint64 {
	return s.version
}

// ID 返回草稿 ID。
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.ID
}

// Input 用客户端回传的编辑面内容替换字段内容，返回草稿是否因此变化。
func (s *Session) Input(name, html string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.fields[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	b.buffer.Replace(s.clean(html))
	return b.field.HandleInput(), nil
}

// Format 选中 [start, end)（字符偏移）后执行格式化命令。选区越界返回错误；命令本身失败视为无变化。
func (s *Session) Format(name string, cmd richtext.Command, start, end int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.fields[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if err := b.buffer.Select(start, end); err != nil {
		return false, fmt.Errorf("select %s [%d,%d): %w", name, start, end, err)
	}
	return b.field.Exec(cmd), nil
}

// Update 用宿主提交的整份简历覆盖草稿。ID 与模板不可修改；
// 富文本字段通过 Reconcile 同步，新增或删除的工作经历会相应绑定或解绑。
func (s *Session) Update(r resume.Resume) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID != s.draft.ID || r.Template != s.draft.Template {
		return ErrDraftMismatch
	}

	next := r.Clone()
	s.draft = next

	keep := map[string]bool{FieldSummary: true}
	s.reconcileLocked(FieldSummary, next.Summary)
	for _, exp := range next.Experience {
		name := ExperienceField(exp.ID)
		keep[name] = true
		if _, ok := s.fields[name]; ok {
			s.reconcileLocked(name, exp.Description)
		} else {
			s.bindLocked(name, exp.Description)
		}
	}
	for name := range s.fields {
		if !keep[name] {
			delete(s.fields, name)
		}
	}
	return nil
}

// Resume 返回草稿快照。
func (s *Session) Resume() resume.Resume {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Fields 返回各富文本字段当前的编辑面内容。
func (s *Session) Fields() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.fields))
	for name, b := range s.fields {
		out[name] = b.buffer.Content()
	}
	return out
}

// FieldNames 返回已绑定的字段名（有序）。
func (s *Session) FieldNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) bindLocked(name, content string) {
	buf := richtext.NewBuffer()
	opts := []richtext.Option{richtext.WithLogger(s.logger)}
	if s.policy != nil {
		opts = append(opts, richtext.WithPolicy(s.policy))
	}
	field := richtext.NewField(buf, content, s.writer(name), opts...)
	s.fields[name] = &binding{buffer: buf, field: field}
	// 过滤后的内容才是宿主应持有的内容。
	s.writer(name)(field.LastEmitted())
}

func (s *Session) reconcileLocked(name, content string) {
	b := s.fields[name]
	if b.field.Reconcile(content) {
		s.logger.Debug("rich text field overwritten by host", slog.String("field", name))
	}
	s.writer(name)(b.field.LastEmitted())
}

// writer 返回把字段内容写回草稿的回调。回调总在持锁期间被调用。
func (s *Session) writer(name string) func(string) {
	if name == FieldSummary {
		return func(html string) { s.draft.Summary = html }
	}
	id := strings.TrimPrefix(name, experiencePrefix)
	return func(html string) {
		if i := s.draft.FindExperience(id); i >= 0 {
			s.draft.Experience[i].Description = html
		}
	}
}

func (s *Session) clean(html string) string {
	if s.policy == nil {
		return html
	}
	return s.policy.Sanitize(html)
}
