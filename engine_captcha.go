package authkit

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/sistemago/authkit/internal"
	"github.com/sistemago/authkit/internal/stores"
)

// GenerateCaptcha creates a new challenge and stores the hash of its answer.
// The returned Code is for the caller to render (text, image, audio); only
// its hash ever reaches Redis.
func (e *Engine) GenerateCaptcha(ctx context.Context) (*Captcha, error) {
	if e == nil || e.captchaStore == nil {
		return nil, ErrEngineNotReady
	}

	id, err := internal.NewChallengeID()
	if err != nil {
		return nil, err
	}
	code, err := internal.NewCaptchaCode(e.config.Captcha.Length)
	if err != nil {
		return nil, err
	}

	if err := e.captchaStore.Save(ctx, id, internal.HashAnswer(code), e.config.Captcha.TTL); err != nil {
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}

	e.metricInc(MetricCaptchaGenerated)
	e.emitAudit(ctx, auditEventCaptchaGenerated, true, "", "", nil, nil)

	return &Captcha{
		ID:        id,
		Code:      code,
		ExpiresAt: time.Now().Add(e.config.Captcha.TTL),
	}, nil
}

// ValidateCaptcha consumes the challenge and checks the answer. The challenge
// is spent either way; a wrong answer cannot be retried against the same id.
// Answers are compared case-insensitively.
func (e *Engine) ValidateCaptcha(ctx context.Context, challengeID, answer string) (bool, error) {
	if e == nil || e.captchaStore == nil {
		return false, ErrEngineNotReady
	}

	ok, err := e.consumeCaptcha(ctx, challengeID, answer)
	if err != nil {
		e.metricInc(MetricBackendError)
		return false, ErrBackendUnavailable
	}

	if ok {
		e.metricInc(MetricCaptchaSuccess)
	} else {
		e.metricInc(MetricCaptchaFailure)
	}
	e.emitAudit(ctx, auditEventCaptchaValidated, ok, "", "", nil, nil)
	return ok, nil
}

// consumeCaptcha spends the challenge and compares hashes in constant time.
// A missing or expired challenge is a plain mismatch, not an error; only
// backend failures surface as errors.
func (e *Engine) consumeCaptcha(ctx context.Context, challengeID, answer string) (bool, error) {
	if challengeID == "" {
		return false, nil
	}

	expected, err := e.captchaStore.Consume(ctx, challengeID)
	if err != nil {
		if errors.Is(err, stores.ErrCaptchaNotFound) {
			return false, nil
		}
		return false, err
	}

	given := internal.HashAnswer(answer)
	return subtle.ConstantTimeCompare(expected[:], given[:]) == 1, nil
}
