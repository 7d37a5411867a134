package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：客户端可处理的错误（参数、凭据、视图不符等）
// - 5xxx：系统错误
const (
	OK = 0

	InvalidRequest     = 4000
	InvalidCredentials = 4001
	NotConfirmed       = 4002
	CodeMismatch       = 4003
	ResourceMissing    = 4004
	CodeExpired        = 4005
	AlreadyConfirmed   = 4006
	InvalidDraft       = 4007
	ViewConflict       = 4009
	AccountExists      = 4010
	RateLimited        = 4029
	AccountLocked      = 4030

	SystemError      = 5000
	IdentityProvider = 5002
)
