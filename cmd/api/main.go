package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/api"
	"resumeStudio/internal/auth"
	"resumeStudio/internal/config"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/database"
	"resumeStudio/internal/metrics"
	"resumeStudio/internal/richtext"
	"resumeStudio/internal/session"
)

func main() {
	cfg := config.MustLoad()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.API.LogLevel)); err != nil {
		log.Fatalf("parse log level %q: %v", cfg.API.LogLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database ready")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	privatePEM, publicPEM, err := loadKeys(cfg.Auth)
	if err != nil {
		log.Fatalf("load jwt keys: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(privatePEM, publicPEM, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("init token issuer: %v", err)
	}

	identity := auth.NewIdentityService(
		db,
		issuer,
		auth.NewRedisStore(redisClient),
		auth.LogCodeSender{Logger: logger},
		logger,
		auth.IdentityOptions{
			LoginRateLimitPerHour: cfg.Auth.LoginRateLimitPerHour,
			LoginLockThreshold:    cfg.Auth.LoginLockThreshold,
			LoginLockTTL:          cfg.Auth.LoginLockTTL,
			CodeTTL:               cfg.Auth.CodeTTL,
		},
	)

	recorder := metrics.TransitionRecorder{}
	sessions := session.NewRegistry(func(id string) (session.Gateway, *controller.Controller) {
		gateway := auth.NewSessionGateway(identity)
		ctrl := controller.New(gateway,
			controller.WithLogger(logger.With(slog.String("session_id_prefix", id[:8]))),
			controller.WithRecorder(recorder),
		)
		return gateway, ctrl
	}, cfg.Session.IdleTTL, logger)
	metrics.RegisterSessionGauge(sessions.Len)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	deps := api.Dependencies{
		Identity:       identity,
		Sessions:       sessions,
		Cookie:         session.CookieOptions{Secure: cfg.API.CookieSecure},
		AllowedOrigins: cfg.API.AllowedOrigins,
	}
	if cfg.RichText.Sanitize {
		deps.Sanitizer = richtext.NewPolicy()
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("api listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

// loadKeys 读取 RS256 密钥对；未配置路径时生成仅在本进程内有效的临时密钥。
func loadKeys(cfg config.AuthConfig) ([]byte, []byte, error) {
	if cfg.PrivateKeyPath == "" {
		log.Printf("JWT key paths not set, generating an ephemeral key pair; tokens will not survive a restart")
		return auth.GenerateKeyPEM(2048)
	}
	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key: %w", err)
	}
	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read public key: %w", err)
	}
	return privatePEM, publicPEM, nil
}
