package auth

import "strings"

// Identity 是当前登录用户的身份信息，仅在已认证时存在。
type Identity struct {
	Username   string `json:"username"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	Email      string `json:"email,omitempty"`
}

// DisplayName 优先使用姓名，缺失时回落到用户名。
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(i.GivenName) + " " + strings.TrimSpace(i.FamilyName))
	if name != "" {
		return name
	}
	return i.Username
}
