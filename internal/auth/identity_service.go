package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeStudio/internal/database"
)

const (
	verificationKeyPrefix          = "verify:code:"
	refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
	loginRateKeyPrefix             = "rate:login:"
	loginLockKeyPrefix             = "lock:login:"
	loginFailKeyPrefix             = "lock:login:fail:"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotConfirmed   = errors.New("user not confirmed")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrAlreadyConfirmed   = errors.New("user already confirmed")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrAccountNotFound    = errors.New("account not found")
)

// UnconfirmedError 在账号未完成邮箱验证时返回，携带需要验证的邮箱。
type UnconfirmedError struct {
	Email string
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUserNotConfirmed, e.Email)
}

func (e *UnconfirmedError) Is(target error) bool {
	return target == ErrUserNotConfirmed
}

// CodeSender 投递邮箱验证码。
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogCodeSender 仅把验证码写入日志，邮件投递不在本服务范围内。
type LogCodeSender struct {
	Logger *slog.Logger
}

func (s LogCodeSender) SendCode(_ context.Context, email, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("verification code issued", slog.String("email", email), slog.String("code", code))
	return nil
}

// IdentityOptions 是身份服务的限流与验证码参数。
type IdentityOptions struct {
	LoginRateLimitPerHour int
	LoginLockThreshold    int
	LoginLockTTL          time.Duration
	CodeTTL               time.Duration
}

// IdentityService 提供注册、验证、登录、刷新与吊销。
type IdentityService struct {
	db     *gorm.DB
	tokens *TokenIssuer
	kv     KeyValueStore
	sender CodeSender
	logger *slog.Logger
	opts   IdentityOptions
}

// NewIdentityService 构造身份服务。
func NewIdentityService(db *gorm.DB, tokens *TokenIssuer, kv KeyValueStore, sender CodeSender, logger *slog.Logger, opts IdentityOptions) *IdentityService {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = LogCodeSender{Logger: logger}
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 15 * time.Minute
	}
	if opts.LoginLockTTL <= 0 {
		opts.LoginLockTTL = 15 * time.Minute
	}
	return &IdentityService{db: db, tokens: tokens, kv: kv, sender: sender, logger: logger, opts: opts}
}

// SignUpInput 是注册参数。
type SignUpInput struct {
	Username   string
	Email      string
	Password   string
	GivenName  string
	FamilyName string
}

// SignUp 创建未验证账号并发送验证码。
func (s *IdentityService) SignUp(ctx context.Context, in SignUpInput) error {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	logger := s.logger.With(slog.String("username", username))

	var existing database.Account
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	switch {
	case err == nil:
		return ErrUsernameTaken
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("lookup username: %w", err)
	}
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		return ErrEmailTaken
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("lookup email: %w", err)
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return err
	}

	attrs := datatypes.JSONMap{}
	if v := strings.TrimSpace(in.GivenName); v != "" {
		attrs["given_name"] = v
	}
	if v := strings.TrimSpace(in.FamilyName); v != "" {
		attrs["family_name"] = v
	}

	account := database.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Attributes:   attrs,
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	logger.Info("account registered", slog.Uint64("account_id", uint64(account.ID)))

	return s.issueCode(ctx, email)
}

// ResendCode 为未验证账号重新签发验证码。
func (s *IdentityService) ResendCode(ctx context.Context, email string) error {
	account, err := s.accountByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.Confirmed {
		return ErrAlreadyConfirmed
	}
	return s.issueCode(ctx, account.Email)
}

// ConfirmSignUp 校验验证码并将账号标记为已验证。验证后仍需重新登录。
func (s *IdentityService) ConfirmSignUp(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	key := verificationKeyPrefix + email

	stored, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return ErrCodeExpired
	}
	if err != nil {
		return fmt.Errorf("load verification code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return ErrCodeMismatch
	}

	res := s.db.WithContext(ctx).Model(&database.Account{}).
		Where("email = ?", email).
		Update("confirmed", true)
	if res.Error != nil {
		return fmt.Errorf("confirm account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	if err := s.kv.Del(ctx, key); err != nil {
		s.logger.Warn("delete verification code", slog.String("email", email), slog.Any("error", err))
	}
	s.logger.Info("account confirmed", slog.String("email", email))
	return nil
}

// SignIn 校验口令并签发令牌；clientKey 通常为客户端 IP，用于限流。
func (s *IdentityService) SignIn(ctx context.Context, username, password, clientKey string) (TokenPair, error) {
	lowered := strings.ToLower(strings.TrimSpace(username))
	logger := s.logger.With(slog.String("username", lowered))

	if s.opts.LoginRateLimitPerHour > 0 {
		rateKey := loginRateKeyPrefix + clientKey + ":" + lowered + ":" + time.Now().UTC().Format("2006010215")
		count, err := incrWithTTL(ctx, s.kv, rateKey, time.Hour)
		if err != nil {
			logger.Warn("login rate limit unavailable", slog.Any("error", err))
			count = 0
		}
		if count > int64(s.opts.LoginRateLimitPerHour) {
			return TokenPair{}, ErrRateLimited
		}
	}

	ttl, err := s.kv.TTL(ctx, loginLockKeyPrefix+lowered)
	if err != nil {
		logger.Warn("read account lock", slog.Any("error", err))
	}
	if ttl > 0 {
		return TokenPair{}, ErrAccountLocked
	}

	var account database.Account
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("sign in failed: account not found")
			s.recordLoginFailure(ctx, lowered)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("lookup account: %w", err)
	}

	if !CheckPasswordHash(password, account.PasswordHash) {
		logger.Info("sign in failed: password mismatch", slog.Uint64("account_id", uint64(account.ID)))
		s.recordLoginFailure(ctx, lowered)
		return TokenPair{}, ErrInvalidCredentials
	}
	if !account.Confirmed {
		return TokenPair{}, &UnconfirmedError{Email: account.Email}
	}

	if err := s.kv.Del(ctx, loginFailKeyPrefix+lowered); err != nil {
		logger.Warn("reset login failures", slog.Any("error", err))
	}

	pair, err := s.tokens.GenerateTokenPair(account.ID, account.Username)
	if err != nil {
		return TokenPair{}, err
	}
	logger.Info("signed in", slog.Uint64("account_id", uint64(account.ID)))
	return pair, nil
}

// Refresh 校验刷新令牌并轮换出新的令牌对，旧刷新令牌立即吊销。
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	var account database.Account
	if err := s.db.WithContext(ctx).First(&account, claims.UserID).Error; err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", ErrAccountNotFound, err)
	}

	pair, err := s.tokens.GenerateTokenPair(account.ID, account.Username)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.revoke(ctx, claims); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Revoke 将刷新令牌加入黑名单。
func (s *IdentityService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if errors.Is(err, ErrTokenRevoked) || errors.Is(err, jwt.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims)
}

// Identity 校验访问令牌并读取账号属性。
func (s *IdentityService) Identity(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := s.tokens.ValidateToken(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}

	var account database.Account
	if err := s.db.WithContext(ctx).First(&account, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	return &Identity{
		Username:   account.Username,
		GivenName:  account.Attribute("given_name"),
		FamilyName: account.Attribute("family_name"),
		Email:      account.Email,
	}, nil
}

func (s *IdentityService) validateRefresh(ctx context.Context, refreshToken string) (*TokenClaims, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("refresh token missing jti")
	}

	_, err = s.kv.Get(ctx, refreshTokenBlacklistKeyPrefix+claims.ID)
	switch {
	case err == nil:
		return nil, ErrTokenRevoked
	case !errors.Is(err, ErrKeyNotFound):
		return nil, fmt.Errorf("refresh blacklist lookup: %w", err)
	}
	return claims, nil
}

func (s *IdentityService) revoke(ctx context.Context, claims *TokenClaims) error {
	ttl := s.tokens.RefreshTokenTTL()
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.kv.Set(ctx, refreshTokenBlacklistKeyPrefix+claims.ID, "revoked", ttl); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *IdentityService) recordLoginFailure(ctx context.Context, username string) {
	if s.opts.LoginLockThreshold <= 0 {
		return
	}
	count, err := incrWithTTL(ctx, s.kv, loginFailKeyPrefix+username, s.opts.LoginLockTTL)
	if err != nil {
		s.logger.Warn("record login failure", slog.Any("error", err))
		return
	}
	if count >= int64(s.opts.LoginLockThreshold) {
		if err := s.kv.Set(ctx, loginLockKeyPrefix+username, "1", s.opts.LoginLockTTL); err != nil {
			s.logger.Warn("lock account",
				slog.String("username", username),
				slog.Int64("failures", count),
				slog.Any("error", err),
			)
		}
	}
}

func (s *IdentityService) issueCode(ctx context.Context, email string) error {
	code, err := verificationCode()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, verificationKeyPrefix+email, code, s.opts.CodeTTL); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	if err := s.sender.SendCode(ctx, email, code); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	return nil
}

func (s *IdentityService) accountByEmail(ctx context.Context, email string) (*database.Account, error) {
	var account database.Account
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return &account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
