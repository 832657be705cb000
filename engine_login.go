package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/sistemago/authkit/internal/limiters"
)

// Authenticate performs a credential login. Check order is fixed: captcha
// gate, lockout gate, credential check, account status, verification status.
// A wrong password counts against the client key; a correct login clears it.
func (e *Engine) Authenticate(ctx context.Context, creds Credentials) (*TokenPair, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	key := creds.ClientKey
	if key == "" {
		key = creds.Email
	}

	state, err := e.loginAttempts.State(ctx, key)
	if err != nil {
		// Gating reads always fail closed.
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}
	if state != limiters.StateNormal {
		if creds.CaptchaID == "" {
			e.metricInc(MetricLoginCaptchaRequired)
			e.emitAudit(ctx, auditEventLoginCaptcha, false, "", key, ErrCaptchaRequired, nil)
			return nil, ErrCaptchaRequired
		}
		ok, err := e.consumeCaptcha(ctx, creds.CaptchaID, creds.CaptchaAnswer)
		if err != nil {
			e.metricInc(MetricBackendError)
			return nil, ErrBackendUnavailable
		}
		if !ok {
			e.metricInc(MetricCaptchaFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", key, ErrInvalidCaptcha, nil)
			return nil, ErrInvalidCaptcha
		}
		e.metricInc(MetricCaptchaSuccess)
	}

	remaining, err := e.loginAttempts.RemainingLockout(ctx, key)
	if err != nil {
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}
	if remaining > 0 {
		lockErr := &LockoutError{RemainingSeconds: int64(remaining / time.Second)}
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", key, lockErr, nil)
		return nil, lockErr
	}

	user, err := e.users.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if isUserNotFound(err) {
			if failErr := e.recordLoginFailure(ctx, key); failErr != nil {
				return nil, failErr
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", key, ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "user_not_found"}
			})
			return nil, ErrInvalidCredentials
		}
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}

	ok, err := e.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil || !ok {
		if failErr := e.recordLoginFailure(ctx, key); failErr != nil {
			return nil, failErr
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, key, ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, key, ErrAccountDisabled, nil)
		return nil, ErrAccountDisabled
	}
	if needsVerification(user) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, key, ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	// Clearing the counter is best-effort; a correct login never fails on it.
	_ = e.loginAttempts.RecordSuccess(ctx, key)

	pair, err := e.issueTokenPair(ctx, user, "")
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, key, err, func() map[string]string {
			return map[string]string{"reason": "token_issue_failed"}
		})
		return nil, err
	}

	user.LastLogin = time.Now()
	_ = e.users.UpdateUser(ctx, user)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, key, nil, nil)

	return pair, nil
}

// IsCaptchaRequired reports whether the next authentication attempt for the
// key must carry a captcha answer. Backend failures report true; the gate
// fails closed.
func (e *Engine) IsCaptchaRequired(ctx context.Context, clientKey string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	state, err := e.loginAttempts.State(ctx, clientKey)
	if err != nil {
		e.metricInc(MetricBackendError)
		return true, ErrBackendUnavailable
	}
	return state != limiters.StateNormal, nil
}

// RemainingLockoutSeconds returns how long the key stays locked out, zero
// when it is not.
func (e *Engine) RemainingLockoutSeconds(ctx context.Context, clientKey string) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	remaining, err := e.loginAttempts.RemainingLockout(ctx, clientKey)
	if err != nil {
		e.metricInc(MetricBackendError)
		return 0, ErrBackendUnavailable
	}
	return int64(remaining / time.Second), nil
}

// recordLoginFailure counts one failure against the key. With the default
// fail-closed policy an unrecordable failure denies the request, so an
// attacker cannot farm free guesses during a Redis outage.
func (e *Engine) recordLoginFailure(ctx context.Context, key string) error {
	state, err := e.loginAttempts.RecordFailure(ctx, key)
	if err != nil {
		e.metricInc(MetricBackendError)
		if e.config.Attempts.FailOpenOnError {
			return nil
		}
		return ErrBackendUnavailable
	}
	switch state {
	case limiters.StateCaptchaRequired:
		e.metricInc(MetricLoginCaptchaRequired)
	case limiters.StateLocked:
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, "", key, ErrRateLimited, nil)
	}
	return nil
}

func needsVerification(user *UserRecord) bool {
	return user.Role == RoleUser && !user.EmailVerified
}

func isUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
