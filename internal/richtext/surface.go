// Package richtext keeps an editable rich text surface in step with content
// supplied by its host.
//
// A Field remembers the last content it emitted. Local edits are reported to
// the host only when the surface content diverges from that value, and host
// updates are written into the surface only when the surface shows something
// else. Either check alone is enough to break the host -> surface -> host loop.
package richtext

import "errors"

// Command 是作用于当前选区的格式化命令。
type Command string

const (
	CommandBold          Command = "bold"
	CommandItalic        Command = "italic"
	CommandUnorderedList Command = "insertUnorderedList"
)

var (
	// ErrUnsupportedCommand 表示编辑面不支持该命令。
	ErrUnsupportedCommand = errors.New("unsupported formatting command")
	// ErrEmptySelection 表示命令需要非空选区。
	ErrEmptySelection = errors.New("empty selection")
	// ErrInvalidSelection 表示选区越界。
	ErrInvalidSelection = errors.New("invalid selection")
)

// ParseCommand 解析客户端传入的命令名。
func ParseCommand(raw string) (Command, error) {
	switch cmd := Command(raw); cmd {
	case CommandBold, CommandItalic, CommandUnorderedList:
		return cmd, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

// Surface 抽象可编辑区域：浏览器 contentEditable、原生文本控件或无头缓冲区。
type Surface interface {
	Content() string
	SetContent(html string)
	ApplyCommand(cmd Command) error
}

// Sanitizer 在外部内容进入编辑面之前做白名单过滤。
// *bluemonday.Policy 满足该接口。
type Sanitizer interface {
	Sanitize(html string) string
}
