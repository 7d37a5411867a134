package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/database"
)

type createAccountOptions struct {
	username, email        string
	givenName, familyName  string
	dbHost, dbName, dbUser string
	dbPass, sslMode        string
	dbPort                 int
}

func newCreateAccountCmd() *cobra.Command {
	var o createAccountOptions
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "创建已验证账号并打印随机初始密码",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return createAccount(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.username, "username", "", "账号用户名（必填）")
	f.StringVar(&o.email, "email", "", "账号邮箱（必填）")
	f.StringVar(&o.givenName, "given-name", "", "名（可选）")
	f.StringVar(&o.familyName, "family-name", "", "姓（可选）")
	f.StringVar(&o.dbHost, "db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	f.IntVar(&o.dbPort, "db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
	f.StringVar(&o.dbName, "db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
	f.StringVar(&o.dbUser, "db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
	f.StringVar(&o.dbPass, "db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
	f.StringVar(&o.sslMode, "db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func createAccount(cmd *cobra.Command, o createAccountOptions) error {
	username := strings.TrimSpace(o.username)
	email := strings.ToLower(strings.TrimSpace(o.email))
	if username == "" || email == "" {
		return errors.New("--username and --email must not be blank")
	}

	dbCfg, err := loadDatabaseConfig(o.dbHost, o.dbPort, o.dbName, o.dbUser, o.dbPass, o.sslMode)
	if err != nil {
		return fmt.Errorf("load database config: %w", err)
	}
	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	var existing database.Account
	switch err := db.Where("username = ? OR email = ?", username, email).First(&existing).Error; {
	case err == nil:
		return fmt.Errorf("account %q or email %q already exists", username, email)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query account: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	attrs := datatypes.JSONMap{}
	if v := strings.TrimSpace(o.givenName); v != "" {
		attrs["given_name"] = v
	}
	if v := strings.TrimSpace(o.familyName); v != "" {
		attrs["family_name"] = v
	}

	account := database.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Confirmed:    true,
		Attributes:   attrs,
	}
	if err := db.Create(&account).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "已创建已验证账号（无需邮箱验证即可登录）：\n")
	fmt.Fprintf(out, "用户名: %s\n", username)
	fmt.Fprintf(out, "邮箱: %s\n", email)
	fmt.Fprintf(out, "初始密码: %s\n", password)
	fmt.Fprintf(out, "提示：该密码仅显示一次，请妥善保存。\n")
	return nil
}
