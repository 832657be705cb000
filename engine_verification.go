package authkit

import (
	"context"
	"time"

	"github.com/sistemago/authkit/internal"
)

// IssueVerificationToken puts a fresh single-use verification token on the
// user's record, invalidating any prior one, and returns it. The caller (or
// the configured Mailer via ResendVerification) delivers it.
func (e *Engine) IssueVerificationToken(ctx context.Context, userID string) (string, error) {
	if e == nil || e.users == nil {
		return "", ErrEngineNotReady
	}

	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if isUserNotFound(err) {
			return "", ErrUserNotFound
		}
		e.metricInc(MetricBackendError)
		return "", ErrBackendUnavailable
	}
	if user.EmailVerified {
		return "", ErrAlreadyVerified
	}

	token, err := e.stampVerificationToken(ctx, user)
	if err != nil {
		return "", err
	}

	e.metricInc(MetricVerificationRequest)
	e.emitAudit(ctx, auditEventVerificationIssued, true, user.ID, "", nil, nil)
	return token, nil
}

// VerifyEmailToken consumes a verification token. It returns true exactly
// once per token: a second presentation, an unknown token, or an expired one
// all return false without error. Backend failures are errors.
func (e *Engine) VerifyEmailToken(ctx context.Context, token string) (bool, error) {
	if e == nil || e.users == nil {
		return false, ErrEngineNotReady
	}
	if token == "" {
		return false, nil
	}

	user, err := e.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if isUserNotFound(err) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationConfirm, false, "", "", ErrInvalidOrExpiredToken, nil)
			return false, nil
		}
		e.metricInc(MetricBackendError)
		return false, ErrBackendUnavailable
	}

	if user.VerificationExpiresAt.IsZero() || time.Now().After(user.VerificationExpiresAt) {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationConfirm, false, user.ID, "", ErrInvalidOrExpiredToken, nil)
		return false, nil
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	user.VerificationExpiresAt = time.Time{}
	if err := e.users.UpdateUser(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return false, ErrBackendUnavailable
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, "", nil, nil)
	return true, nil
}

// ResendVerification re-issues the verification token for an unverified
// account and mails it out. Already-verified accounts get
// [ErrAlreadyVerified]; unknown emails get [ErrUserNotFound].
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if isUserNotFound(err) {
			return ErrUserNotFound
		}
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}
	if user.EmailVerified {
		e.emitAudit(ctx, auditEventVerificationIssued, false, user.ID, "", ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	token, err := e.stampVerificationToken(ctx, user)
	if err != nil {
		return err
	}

	if err := e.mailer.SendVerification(ctx, user.Email, token); err != nil {
		e.metricInc(MetricVerificationFailure)
		return err
	}

	e.metricInc(MetricVerificationRequest)
	e.emitAudit(ctx, auditEventVerificationIssued, true, user.ID, "", nil, nil)
	return nil
}

// stampVerificationToken replaces the user's verification token wholesale and
// persists the record. The old token, if any, stops working immediately.
func (e *Engine) stampVerificationToken(ctx context.Context, user *UserRecord) (string, error) {
	token, err := internal.NewSecretToken()
	if err != nil {
		return "", err
	}
	user.VerificationToken = token
	user.VerificationExpiresAt = time.Now().Add(e.config.Verification.TokenTTL)
	if err := e.users.UpdateUser(ctx, user); err != nil {
		e.metricInc(MetricBackendError)
		return "", ErrBackendUnavailable
	}
	return token, nil
}
