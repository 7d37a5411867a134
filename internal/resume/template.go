package resume

import (
	"errors"
	"fmt"
)

// TemplateID 标识一种可视化模板，取值为封闭集合。
type TemplateID string

const (
	TemplateClassic  TemplateID = "classic"
	TemplateModern   TemplateID = "modern"
	TemplateCreative TemplateID = "creative"
	TemplateMinimal  TemplateID = "minimal"
)

// ErrUnknownTemplate 表示模板 ID 不在支持的集合中。
var ErrUnknownTemplate = errors.New("unknown template")

// TemplateInfo 是模板选择页展示的目录条目。
type TemplateInfo struct {
	ID          TemplateID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

var catalog = []TemplateInfo{
	{ID: TemplateClassic, Name: "Classic", Description: "Single column, serif headings, suited to traditional industries."},
	{ID: TemplateModern, Name: "Modern", Description: "Two columns with an accent sidebar for skills and contacts."},
	{ID: TemplateCreative, Name: "Creative", Description: "Bold header block and colored section dividers."},
	{ID: TemplateMinimal, Name: "Minimal", Description: "Plain typography with generous whitespace."},
}

// Templates 返回模板目录的副本，顺序固定。
func Templates() []TemplateInfo {
	out := make([]TemplateInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Valid 判断模板 ID 是否受支持。
func (t TemplateID) Valid() bool {
	for _, info := range catalog {
		if info.ID == t {
			return true
		}
	}
	return false
}

// ParseTemplateID 解析并校验模板 ID。
func ParseTemplateID(raw string) (TemplateID, error) {
	id := TemplateID(raw)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, raw)
	}
	return id, nil
}
