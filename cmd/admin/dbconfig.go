package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"resumeStudio/internal/config"
)

// loadDatabaseConfig 以环境变量配置为基础，非零的命令行参数优先。
func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	db := cfg.Database
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&db.Host, host)
	override(&db.Name, name)
	override(&db.User, user)
	override(&db.Password, password)
	override(&db.SSLMode, sslmode)
	if port > 0 {
		db.Port = port
	}
	return db, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
