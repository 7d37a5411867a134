package richtext

import (
	"log/slog"
)

// Field 是富文本同步引擎，绑定一个 Surface 与宿主的变更回调。
// Field 不是并发安全的，调用方需要保证同一字段的调用是串行的。
type Field struct {
	surface  Surface
	onChange func(html string)
	policy   Sanitizer
	logger   *slog.Logger

	lastEmitted string
}

// Option 配置 Field。
type Option func(*Field)

// WithPolicy 为进入编辑面的外部内容配置过滤策略。
func WithPolicy(policy Sanitizer) Option {
	return func(f *Field) { f.policy = policy }
}

// WithLogger 指定日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(f *Field) { f.logger = logger }
}

// NewField 将 content 写入编辑面并记为最近一次已知内容。
func NewField(surface Surface, content string, onChange func(html string), opts ...Option) *Field {
	f := &Field{
		surface:  surface,
		onChange: onChange,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if onChange == nil {
		f.onChange = func(string) {}
	}

	f.surface.SetContent(f.clean(content))
	f.lastEmitted = f.surface.Content()
	return f
}

// HandleInput 处理一次本地编辑事件：内容与最近一次发出的不同时才通知宿主。
func (f *Field) HandleInput() bool {
	current := f.surface.Content()
	if current == f.lastEmitted {
		return false
	}
	f.lastEmitted = current
	f.onChange(current)
	return true
}

// Reconcile 用宿主提供的内容覆盖编辑面，仅在两者不一致时写入，从不触发通知。
// 返回值表示是否发生了覆盖（覆盖会打断正在进行的光标位置）。
func (f *Field) Reconcile(external string) bool {
	want := f.clean(external)
	// 宿主已经持有该内容，后续本地编辑以此为基准比较。
	f.lastEmitted = want
	if f.surface.Content() == want {
		return false
	}
	f.surface.SetContent(want)
	return true
}

// Exec 对当前选区执行格式化命令，命令产出同样经过过滤策略，然后走与本地编辑相同的变更检测。
// 命令失败与无操作不做区分。
func (f *Field) Exec(cmd Command) bool {
	if err := f.surface.ApplyCommand(cmd); err != nil {
		f.logger.Debug("rich text command not applied",
			slog.String("command", string(cmd)),
			slog.Any("error", err),
		)
		return f.HandleInput()
	}
	if f.policy != nil {
		current := f.surface.Content()
		if cleaned := f.clean(current); cleaned != current {
			f.surface.SetContent(cleaned)
		}
	}
	return f.HandleInput()
}

// LastEmitted 返回最近一次已知（已发出或已同步）的内容。
func (f *Field) LastEmitted() string {
	return f.lastEmitted
}

// Surface 返回绑定的编辑面。
func (f *Field) Surface() Surface {
	return f.surface
}

func (f *Field) clean(html string) string {
	if f.policy == nil {
		return html
	}
	return f.policy.Sanitize(html)
}
