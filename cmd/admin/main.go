package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "resumeStudio 运维工具",
	Long:  "创建已验证账号、生成 JWT 签名密钥等一次性运维操作。",
}

func main() {
	rootCmd.AddCommand(newCreateAccountCmd(), newGenerateKeysCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
