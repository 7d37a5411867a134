package richtext

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Buffer 是无头编辑面：内容为 HTML 字符串，对外的选区 [start, end) 以字符（rune）计数，
// 内部保存字节偏移。用于服务端草稿编辑与测试。
type Buffer struct {
	content    string
	start, end int
}

// NewBuffer 创建空缓冲区。
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Content() string {
	return b.content
}

// SetContent 覆盖内容，光标移到末尾。
func (b *Buffer) SetContent(html string) {
	b.content = html
	b.start = len(html)
	b.end = len(html)
}

// Selection 返回当前选区的字符偏移。
func (b *Buffer) Selection() (start, end int) {
	return utf8.RuneCountInString(b.content[:b.start]), utf8.RuneCountInString(b.content[:b.end])
}

// Select 按字符偏移设置选区；落在标签内部的边界会被移到标签之外。
func (b *Buffer) Select(start, end int) error {
	if start < 0 || end < start || end > utf8.RuneCountInString(b.content) {
		return ErrInvalidSelection
	}
	b.start = snapOutOfTag(b.content, byteOffset(b.content, start), false)
	b.end = snapOutOfTag(b.content, byteOffset(b.content, end), true)
	if b.end < b.start {
		b.end = b.start
	}
	return nil
}

// Type 用文本替换选区，模拟键入，光标停在插入内容之后。
func (b *Buffer) Type(text string) {
	b.replaceSelection(html.EscapeString(text))
	b.start = b.end
}

// Replace 整体替换内容，模拟编辑面上的任意输入（例如粘贴或浏览器回传的 innerHTML）。
// 与 SetContent 不同，这是用户编辑路径，调用方随后应触发 Field.HandleInput。
func (b *Buffer) Replace(html string) {
	b.SetContent(html)
}

// ApplyCommand 对选区执行格式化命令，成功后选区覆盖新插入的片段。
func (b *Buffer) ApplyCommand(cmd Command) error {
	if b.start == b.end {
		return ErrEmptySelection
	}
	selected := b.content[b.start:b.end]

	var replacement string
	switch cmd {
	case CommandBold:
		replacement = wrapInline(selected, "b")
	case CommandItalic:
		replacement = wrapInline(selected, "i")
	case CommandUnorderedList:
		replacement = toList(selected)
	default:
		return ErrUnsupportedCommand
	}

	b.replaceSelection(replacement)
	return nil
}

func (b *Buffer) replaceSelection(fragment string) {
	b.content = b.content[:b.start] + fragment + b.content[b.end:]
	b.end = b.start + len(fragment)
}

// byteOffset 把字符偏移换算为字节偏移，调用方保证 n 不越界。
func byteOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

// wrapInline 用 tag 包裹选中片段。片段自身标签配对完整时整体包裹；
// 跨越元素边界时逐段包裹其中的文本，原有标签保持原位，结果不会出现交叉嵌套。
func wrapInline(fragment, tag string) string {
	open, end := "<"+tag+">", "</"+tag+">"
	if balanced(fragment) {
		return open + fragment + end
	}

	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		if tt == html.TextToken && strings.TrimSpace(raw) != "" {
			out.WriteString(open + raw + end)
			continue
		}
		out.WriteString(raw)
	}
	return out.String()
}

// voidElements 没有结束标签。
var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "wbr": true, "input": true,
}

// balanced 判断片段内的开始与结束标签是否一一配对。
func balanced(fragment string) bool {
	var stack []string
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return z.Err() == io.EOF && len(stack) == 0
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				stack = append(stack, string(name))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if len(stack) == 0 || stack[len(stack)-1] != string(name) {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
}

// closeOpenTags 丢弃没有对应开始标签的结束标签，并在末尾补齐未闭合的标签。
// carry 是上一段遗留的开始标签，会先在片段开头重新打开；返回本段遗留的开始标签。
func closeOpenTags(fragment string, carry []string) (string, []string) {
	type openTag struct{ name, raw string }
	var (
		out   strings.Builder
		stack []openTag
	)
	for _, raw := range carry {
		z := html.NewTokenizer(strings.NewReader(raw))
		z.Next()
		name, _ := z.TagName()
		stack = append(stack, openTag{string(name), raw})
		out.WriteString(raw)
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			raw := string(z.Raw())
			if !voidElements[string(name)] {
				stack = append(stack, openTag{string(name), raw})
			}
			out.WriteString(raw)
		case html.EndTagToken:
			name, _ := z.TagName()
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == string(name) {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			for i := len(stack) - 1; i > idx; i-- {
				out.WriteString("</" + stack[i].name + ">")
			}
			out.WriteString("</" + string(name) + ">")
			stack = stack[:idx]
		default:
			out.Write(z.Raw())
		}
	}

	left := make([]string, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		out.WriteString("</" + stack[i].name + ">")
	}
	for _, t := range stack {
		left = append(left, t.raw)
	}
	return out.String(), left
}

// snapOutOfTag 若 pos 位于 "<...>" 内部，则移动到标签起点（forward=false）或终点之后（forward=true）。
func snapOutOfTag(s string, pos int, forward bool) int {
	open := strings.LastIndexByte(s[:pos], '<')
	if open < 0 || strings.LastIndexByte(s[:pos], '>') > open {
		return pos
	}
	if !forward {
		return open
	}
	if closeIdx := strings.IndexByte(s[pos:], '>'); closeIdx >= 0 {
		return pos + closeIdx + 1
	}
	return len(s)
}

// blockBreaks 中的标签在列表转换时视为换行。
var blockBreaks = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "br": true,
}

// toList 把选中片段按行拆成无序列表项，保留行内标签。
func toList(fragment string) string {
	var (
		items []string
		line  strings.Builder
	)
	flush := func() {
		if text := strings.TrimSpace(line.String()); text != "" {
			items = append(items, text)
		}
		line.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				line.Write(z.Raw())
			}
			break
		}
		switch tt {
		case html.TextToken:
			for i, part := range strings.Split(string(z.Raw()), "\n") {
				if i > 0 {
					flush()
				}
				line.WriteString(part)
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockBreaks[string(name)] {
				flush()
				continue
			}
			line.Write(z.Raw())
		default:
			line.Write(z.Raw())
		}
	}
	flush()

	if len(items) == 0 {
		return "<ul><li></li></ul>"
	}
	var (
		out   strings.Builder
		carry []string
	)
	out.WriteString("<ul>")
	for _, item := range items {
		// 跨行的行内标签在每个列表项内各自闭合，下一项重新打开。
		var fixed string
		fixed, carry = closeOpenTags(item, carry)
		out.WriteString("<li>")
		out.WriteString(fixed)
		out.WriteString("</li>")
	}
	out.WriteString("</ul>")
	return out.String()
}
