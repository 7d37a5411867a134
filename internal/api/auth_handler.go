package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/auth"
	"resumeStudio/internal/errcode"
)

// AuthHandler 处理注册、登录、邮箱验证与退出，并驱动对应的页面切换。
type AuthHandler struct {
	viewer
	identity IdentityProvider
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(identity IdentityProvider, v viewer) *AuthHandler {
	return &AuthHandler{viewer: v, identity: identity}
}

type signUpRequest struct {
	Username   string `json:"username" binding:"required,min=3,max=64"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
	GivenName  string `json:"given_name" binding:"max=64"`
	FamilyName string `json:"family_name" binding:"max=64"`
}

// SignUp 注册账号并进入验证页。
func (h *AuthHandler) SignUp(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	err := h.identity.SignUp(c.Request.Context(), auth.SignUpInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
		h.fail(c, entry, http.StatusConflict, errcode.AccountExists, err.Error())
		return
	case errors.Is(err, auth.ErrPasswordTooLong):
		BadRequest(c, err.Error())
		return
	default:
		middleware.LoggerFromContext(c).Error("sign up failed", slog.Any("error", err))
		h.fail(c, entry, http.StatusBadGateway, errcode.IdentityProvider, "sign up failed")
		return
	}

	entry.Controller.BeginVerification(strings.ToLower(strings.TrimSpace(req.Email)))
	h.respond(c, entry)
}

type signInRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignIn 校验凭据；成功后挂载令牌并重新查询身份，未验证的账号转入验证页。
func (h *AuthHandler) SignIn(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	pair, err := h.identity.SignIn(ctx, req.Username, req.Password, c.ClientIP())
	var unconfirmed *auth.UnconfirmedError
	switch {
	case err == nil:
	case errors.As(err, &unconfirmed):
		entry.Controller.BeginVerification(unconfirmed.Email)
		h.respond(c, entry)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.fail(c, entry, http.StatusUnauthorized, errcode.InvalidCredentials, "incorrect username or password")
		return
	case errors.Is(err, auth.ErrRateLimited):
		h.fail(c, entry, http.StatusTooManyRequests, errcode.RateLimited, err.Error())
		return
	case errors.Is(err, auth.ErrAccountLocked):
		h.fail(c, entry, http.StatusTooManyRequests, errcode.AccountLocked, err.Error())
		return
	default:
		logger.Error("sign in failed", slog.Any("error", err))
		h.fail(c, entry, http.StatusBadGateway, errcode.IdentityProvider, "sign in failed")
		return
	}

	entry.Gateway.Attach(pair)
	if !entry.Controller.CompleteLogin(ctx) {
		logger.Warn("identity check failed right after sign in")
		h.fail(c, entry, http.StatusBadGateway, errcode.IdentityProvider, "identity check failed")
		return
	}
	h.respond(c, entry)
}

type verifyRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// Verify 校验邮箱验证码，成功后回到登录页并提示重新登录。
func (h *AuthHandler) Verify(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	email := entry.Controller.State().VerificationEmail
	err := h.identity.ConfirmSignUp(c.Request.Context(), email, req.Code)
	switch {
	case err == nil, errors.Is(err, auth.ErrAlreadyConfirmed):
	case errors.Is(err, auth.ErrCodeMismatch):
		h.fail(c, entry, http.StatusBadRequest, errcode.CodeMismatch, "invalid verification code")
		return
	case errors.Is(err, auth.ErrCodeExpired):
		h.fail(c, entry, http.StatusBadRequest, errcode.CodeExpired, "verification code expired, request a new one")
		return
	case errors.Is(err, auth.ErrAccountNotFound):
		h.fail(c, entry, http.StatusNotFound, errcode.ResourceMissing, "account not found")
		return
	default:
		middleware.LoggerFromContext(c).Error("confirm sign up failed", slog.Any("error", err))
		h.fail(c, entry, http.StatusBadGateway, errcode.IdentityProvider, "verification failed")
		return
	}

	entry.Controller.CompleteVerification()
	h.respond(c, entry)
}

// Resend 重新发送验证码。
func (h *AuthHandler) Resend(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	email := entry.Controller.State().VerificationEmail

	err := h.identity.ResendCode(c.Request.Context(), email)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrAlreadyConfirmed):
		h.fail(c, entry, http.StatusConflict, errcode.AlreadyConfirmed, err.Error())
		return
	case errors.Is(err, auth.ErrAccountNotFound):
		h.fail(c, entry, http.StatusNotFound, errcode.ResourceMissing, "account not found")
		return
	default:
		middleware.LoggerFromContext(c).Error("resend code failed", slog.Any("error", err))
		h.fail(c, entry, http.StatusBadGateway, errcode.IdentityProvider, "resend failed")
		return
	}
	h.respond(c, entry)
}

// SignOut 退出登录。失败时用户仍保持登录状态。
func (h *AuthHandler) SignOut(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	if err := entry.Controller.Logout(c.Request.Context()); err != nil {
		h.fail(c, entry, http.StatusBadGateway, errcode.IdentityProvider, "sign out failed")
		return
	}
	h.respond(c, entry)
}
