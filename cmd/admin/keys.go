package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resumeStudio/internal/auth"
)

func newGenerateKeysCmd() *cobra.Command {
	var (
		outDir string
		bits   int
	)
	cmd := &cobra.Command{
		Use:   "generate-keys",
		Short: "生成 RS256 签名密钥对（private.pem / public.pem）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			privatePEM, publicPEM, err := auth.GenerateKeyPEM(bits)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}

			privatePath := filepath.Join(outDir, "private.pem")
			publicPath := filepath.Join(outDir, "public.pem")
			if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
				return fmt.Errorf("write private key: %w", err)
			}
			if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
				return fmt.Errorf("write public key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "JWT_PRIVATE_KEY_PATH=%s\n", privatePath)
			fmt.Fprintf(out, "JWT_PUBLIC_KEY_PATH=%s\n", publicPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "keys", "密钥输出目录")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA 位数")
	return cmd
}
