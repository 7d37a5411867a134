package richtext

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
)

// PlainText 去掉标签，返回可读文本；块级标签之间以单个空格分隔。
// 用于控制台卡片等只需要摘要的地方。
func PlainText(fragment string) string {
	var out strings.Builder
	z := nethtml.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case nethtml.ErrorToken:
			return strings.Join(strings.Fields(out.String()), " ")
		case nethtml.TextToken:
			out.WriteString(html.UnescapeString(string(z.Raw())))
		case nethtml.StartTagToken, nethtml.EndTagToken, nethtml.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockBreaks[string(name)] {
				out.WriteByte(' ')
			}
		}
	}
}

// Excerpt 返回不超过 limit 个字符的纯文本摘要，截断时以 "…" 结尾。
func Excerpt(fragment string, limit int) string {
	text := []rune(PlainText(fragment))
	if limit <= 0 || len(text) <= limit {
		return string(text)
	}
	return strings.TrimSpace(string(text[:limit])) + "…"
}
