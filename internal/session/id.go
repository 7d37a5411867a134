package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateID 生成 256 位随机会话 ID（URL 安全的 base64）。
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
