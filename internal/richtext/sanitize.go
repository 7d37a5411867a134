package richtext

import "github.com/microcosm-cc/bluemonday"

// NewPolicy 返回富文本字段使用的白名单策略：只保留格式化命令能产生的标签，不保留任何属性。
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ul", "ol", "li", "p", "br", "div", "span")
	return p
}
