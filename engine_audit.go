package authkit

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginCaptcha         = "login_captcha_required"
	auditEventLoginLocked          = "login_locked"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventLogoutAll            = "logout_all"
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventCaptchaGenerated     = "captcha_generated"
	auditEventCaptchaValidated     = "captcha_validated"
	auditEventVerificationIssued   = "verification_issued"
	auditEventVerificationConfirm  = "verification_confirm"
	auditEventResetRequest         = "password_reset_request"
	auditEventResetConfirm         = "password_reset_confirm"
	auditEventKeyRotation          = "key_rotation"
)

// AuditErrorCode is the stable short code recorded in [AuditEvent].Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrEmailNotVerified   AuditErrorCode = "email_not_verified"
	auditErrCaptchaRequired    AuditErrorCode = "captcha_required"
	auditErrInvalidCaptcha     AuditErrorCode = "invalid_captcha"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenReuse         AuditErrorCode = "token_reuse"
	auditErrAlreadyVerified    AuditErrorCode = "already_verified"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidCPF         AuditErrorCode = "invalid_cpf"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	clientKey string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		ClientKey: clientKey,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrEmailNotVerified):
		return auditErrEmailNotVerified
	case errors.Is(err, ErrCaptchaRequired):
		return auditErrCaptchaRequired
	case errors.Is(err, ErrInvalidCaptcha):
		return auditErrInvalidCaptcha
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenReuseDetected):
		return auditErrTokenReuse
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrEmailAlreadyInUse), errors.Is(err, ErrCPFAlreadyInUse):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidCPF):
		return auditErrInvalidCPF
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
