package authkit

import (
	"context"
	"time"

	"github.com/sistemago/authkit/internal"
	"github.com/sistemago/authkit/internal/limiters"
)

// RequestPasswordReset issues a reset token and mails it out. Reset requests
// escalate on their own attempt namespace, independent from login, and carry
// a per-email cooldown between successful requests. Unknown emails count as a
// failure against the client key but otherwise succeed silently, so the
// endpoint cannot be used to enumerate accounts.
func (e *Engine) RequestPasswordReset(ctx context.Context, req ResetRequest) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if req.Email == "" {
		return ErrInvalidInput
	}
	key := req.ClientKey
	if key == "" {
		key = req.Email
	}

	state, err := e.resetAttempts.State(ctx, key)
	if err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}
	if state != limiters.StateNormal {
		if req.CaptchaID == "" {
			e.emitAudit(ctx, auditEventResetRequest, false, "", key, ErrCaptchaRequired, nil)
			return ErrCaptchaRequired
		}
		ok, err := e.consumeCaptcha(ctx, req.CaptchaID, req.CaptchaAnswer)
		if err != nil {
			e.metricInc(MetricBackendError)
			return ErrBackendUnavailable
		}
		if !ok {
			e.metricInc(MetricCaptchaFailure)
			e.emitAudit(ctx, auditEventResetRequest, false, "", key, ErrInvalidCaptcha, nil)
			return ErrInvalidCaptcha
		}
		e.metricInc(MetricCaptchaSuccess)
	}

	remaining, err := e.resetAttempts.RemainingLockout(ctx, key)
	if err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}
	if remaining > 0 {
		lockErr := &LockoutError{RemainingSeconds: int64(remaining / time.Second)}
		e.metricInc(MetricResetRateLimited)
		e.emitAudit(ctx, auditEventResetRequest, false, "", key, lockErr, nil)
		return lockErr
	}

	cooldown, err := e.resetCooldown.Remaining(ctx, req.Email)
	if err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}
	if cooldown > 0 {
		lockErr := &LockoutError{RemainingSeconds: int64(cooldown / time.Second)}
		e.metricInc(MetricResetRateLimited)
		e.emitAudit(ctx, auditEventResetRequest, false, "", key, lockErr, func() map[string]string {
			return map[string]string{"reason": "cooldown"}
		})
		return lockErr
	}

	user, err := e.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if isUserNotFound(err) {
			if failErr := e.recordResetFailure(ctx, key); failErr != nil {
				return failErr
			}
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventResetRequest, false, "", key, ErrUserNotFound, nil)
			return nil
		}
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}

	token, err := internal.NewSecretToken()
	if err != nil {
		return err
	}
	user.ResetToken = token
	user.ResetExpiresAt = time.Now().Add(e.config.PasswordReset.TokenTTL)
	if err := e.users.UpdateUser(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}

	if err := e.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		e.metricInc(MetricResetFailure)
		return err
	}

	// Arming the cooldown is best-effort; the mail is already on its way.
	_ = e.resetCooldown.Start(ctx, req.Email)
	_ = e.resetAttempts.RecordSuccess(ctx, key)

	e.metricInc(MetricResetRequest)
	e.emitAudit(ctx, auditEventResetRequest, true, user.ID, key, nil, nil)
	return nil
}

// ResetCooldownSeconds returns how long the email must wait before another
// reset request is accepted, zero when it is free.
func (e *Engine) ResetCooldownSeconds(ctx context.Context, email string) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	remaining, err := e.resetCooldown.Remaining(ctx, email)
	if err != nil {
		e.metricInc(MetricBackendError)
		return 0, ErrBackendUnavailable
	}
	return int64(remaining / time.Second), nil
}

// ConfirmPasswordReset consumes the reset token, installs the new password,
// and revokes every refresh token the user holds. Any session from before
// the reset is dead afterwards.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	if len(newPassword) < minPasswordLength {
		return ErrInvalidInput
	}

	user, err := e.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if isUserNotFound(err) {
			e.metricInc(MetricResetFailure)
			e.emitAudit(ctx, auditEventResetConfirm, false, "", "", ErrInvalidOrExpiredToken, nil)
			return ErrInvalidOrExpiredToken
		}
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}

	if user.ResetExpiresAt.IsZero() || time.Now().After(user.ResetExpiresAt) {
		e.metricInc(MetricResetFailure)
		e.emitAudit(ctx, auditEventResetConfirm, false, user.ID, "", ErrInvalidOrExpiredToken, nil)
		return ErrInvalidOrExpiredToken
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetExpiresAt = time.Time{}
	if err := e.users.UpdateUser(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}

	// The password changed; nothing issued before this moment may survive.
	// Best-effort, the reset itself is already committed.
	_ = e.refreshStore.RevokeAllForUser(ctx, user.ID)

	e.metricInc(MetricResetSuccess)
	e.emitAudit(ctx, auditEventResetConfirm, true, user.ID, "", nil, nil)
	return nil
}

// recordResetFailure mirrors recordLoginFailure for the reset namespace.
func (e *Engine) recordResetFailure(ctx context.Context, key string) error {
	state, err := e.resetAttempts.RecordFailure(ctx, key)
	if err != nil {
		e.metricInc(MetricBackendError)
		if e.config.Attempts.FailOpenOnError {
			return nil
		}
		return ErrBackendUnavailable
	}
	if state == limiters.StateLocked {
		e.metricInc(MetricResetRateLimited)
	}
	return nil
}
