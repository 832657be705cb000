package authkit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike;
	// callers cannot distinguish which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled means the account exists but is administratively disabled.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrEmailNotVerified means login is gated on a pending email verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrCaptchaRequired means the client must solve a captcha before retrying.
	ErrCaptchaRequired = errors.New("captcha required")
	// ErrInvalidCaptcha means the supplied captcha answer was wrong or the
	// challenge was already consumed.
	ErrInvalidCaptcha = errors.New("invalid captcha")
	// ErrRateLimited is the base error for lockouts and cooldowns. Errors
	// carrying remaining time are *LockoutError values matching this via
	// errors.Is.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidOrExpiredToken covers every refresh/verification/reset token
	// failure that is not a detected reuse.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrTokenReuseDetected means an already-rotated refresh token was
	// presented. The whole token family is revoked; the client must log in
	// again. Never retryable.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
	// ErrAlreadyVerified means a verification was requested for a verified account.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrEmailAlreadyInUse is returned by Register and must also be returned
	// by UserStore.CreateUser on an email uniqueness conflict.
	ErrEmailAlreadyInUse = errors.New("email already in use")
	// ErrCPFAlreadyInUse is returned by Register and must also be returned
	// by UserStore.CreateUser on a CPF uniqueness conflict.
	ErrCPFAlreadyInUse = errors.New("cpf already in use")
	// ErrInvalidCPF means the CPF failed check-digit validation.
	ErrInvalidCPF = errors.New("invalid cpf")
	// ErrInvalidInput means a registration field failed basic validation
	// (malformed email, password too short).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserNotFound must be returned by UserStore lookups when no user
	// matches. The engine maps it to ErrInvalidCredentials or
	// ErrInvalidOrExpiredToken before it reaches callers of login flows.
	ErrUserNotFound = errors.New("user not found")
	// ErrBackendUnavailable means a Redis-backed check could not run. Gating
	// checks fail closed on it.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
	// ErrEngineNotReady means the engine was used before Build or after misconstruction.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockoutError is a RateLimited error carrying how long the caller must wait.
// errors.Is(err, ErrRateLimited) matches it.
type LockoutError struct {
	RemainingSeconds int64
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("rate limited: retry in %ds", e.RemainingSeconds)
}

func (e *LockoutError) Is(target error) bool {
	return target == ErrRateLimited
}
