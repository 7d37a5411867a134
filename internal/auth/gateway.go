package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession 表示当前会话没有有效的登录态。
var ErrNoSession = errors.New("no valid session")

// SessionGateway 是单个浏览器会话的身份网关：持有该会话的令牌对，
// 对外只暴露“查询当前身份”和“退出登录”两种能力。
type SessionGateway struct {
	svc *IdentityService

	mu     sync.Mutex
	tokens TokenPair
}

// NewSessionGateway 创建未登录的网关。
func NewSessionGateway(svc *IdentityService) *SessionGateway {
	return &SessionGateway{svc: svc}
}

// Attach 在登录成功后保存令牌对。
func (g *SessionGateway) Attach(tokens TokenPair) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens = tokens
}

// CheckCurrentIdentity 校验访问令牌；过期时用刷新令牌轮换一次。
func (g *SessionGateway) CheckCurrentIdentity(ctx context.Context) (*Identity, error) {
	g.mu.Lock()
	tokens := g.tokens
	g.mu.Unlock()

	if tokens.Empty() {
		return nil, ErrNoSession
	}

	identity, err := g.svc.Identity(ctx, tokens.AccessToken)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, jwt.ErrTokenExpired) || tokens.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	rotated, err := g.svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh: %v", ErrNoSession, err)
	}
	g.Attach(rotated)

	identity, err = g.svc.Identity(ctx, rotated.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return identity, nil
}

// SignOut 吊销刷新令牌并丢弃本地令牌。吊销失败时保留令牌，调用方据此保持已登录状态。
func (g *SessionGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	tokens := g.tokens
	g.mu.Unlock()

	if tokens.RefreshToken != "" {
		if err := g.svc.Revoke(ctx, tokens.RefreshToken); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
	}

	g.Attach(TokenPair{})
	return nil
}
