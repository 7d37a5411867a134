package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account 表示身份服务中的登录账号。简历本身不落库，只存在于会话内存中。
type Account struct {
	gorm.Model
	Username     string `gorm:"uniqueIndex;size:64"`
	Email        string `gorm:"uniqueIndex;size:255"`
	PasswordHash string `gorm:"size:255"`
	// Confirmed 为 false 时账号需要先完成邮箱验证才能登录。
	Confirmed bool `gorm:"default:false"`
	// Attributes 存放 given_name / family_name 等可选属性。
	Attributes datatypes.JSONMap
}

// Attribute 读取字符串属性，缺失时返回空串。
func (a Account) Attribute(name string) string {
	if a.Attributes == nil {
		return ""
	}
	if v, ok := a.Attributes[name].(string); ok {
		return v
	}
	return ""
}
