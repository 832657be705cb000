package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/sistemago/authkit/internal/audit"
	"github.com/sistemago/authkit/internal/limiters"
	internalmetrics "github.com/sistemago/authkit/internal/metrics"
	"github.com/sistemago/authkit/internal/stores"
	"github.com/sistemago/authkit/jwt"
	"github.com/sistemago/authkit/keys"
)

// Engine orchestrates the authentication lifecycle. It is the only caller of
// the key manager, token manager, stores, and limiters; none of them call
// each other.
type Engine struct {
	config        Config
	keys          *keys.Manager
	tokens        *jwt.Manager
	refreshStore  *stores.RefreshStore
	blacklist     *stores.BlacklistStore
	captchaStore  *stores.CaptchaStore
	loginAttempts *limiters.AttemptTracker
	resetAttempts *limiters.AttemptTracker
	resetCooldown *limiters.Cooldown
	hasher        PasswordHasher
	users         UserStore
	mailer        Mailer
	audit         *audit.Dispatcher
	metrics       *internalmetrics.Metrics
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all operation counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateAccessToken verifies signature, expiry, issuer, and token type,
// then consults the blacklist so logged-out access tokens die before their
// natural expiry. Blacklist read failures deny the request.
func (e *Engine) ValidateAccessToken(ctx context.Context, token string) (*AccessClaims, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Validate(token, jwt.TypeAccess)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrInvalidOrExpiredToken
	}

	revoked, err := e.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}
	if revoked {
		e.metricInc(MetricValidateBlacklisted)
		return nil, ErrInvalidOrExpiredToken
	}

	e.metricInc(MetricValidateSuccess)
	return &AccessClaims{
		Subject:   claims.Subject,
		Role:      Role(claims.Role),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RotateKeys force-regenerates the signing keypair. Every previously issued
// token fails signature validation afterwards; this is the revoke-everything
// lever, not routine rotation.
func (e *Engine) RotateKeys() error {
	if e == nil || e.keys == nil {
		return ErrEngineNotReady
	}
	if err := e.keys.ForceRegenerate(); err != nil {
		return err
	}
	e.metricInc(MetricKeyRotation)
	e.emitAudit(context.Background(), auditEventKeyRotation, true, "", "", nil, nil)
	return nil
}

// issueTokenPair signs an access token and creates a refresh record plus its
// signed token. familyID groups rotation descendants; pass the empty string
// to start a new family.
func (e *Engine) issueTokenPair(ctx context.Context, user *UserRecord, familyID string) (*TokenPair, error) {
	access, _, err := e.tokens.IssueAccess(user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	record := newRefreshRecord(user.ID, familyID, e.config.JWT.RefreshTTL)
	if err := e.refreshStore.Save(ctx, record, e.config.JWT.RefreshTTL); err != nil {
		return nil, ErrBackendUnavailable
	}

	refresh, err := e.tokens.IssueRefresh(user.Email, string(user.Role), record.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(e.config.JWT.AccessTTL),
		RefreshExpiresAt: now.Add(e.config.JWT.RefreshTTL),
	}, nil
}

// isBackendErr reports whether err came from an unreachable Redis backend
// rather than a domain condition.
func isBackendErr(err error) bool {
	return errors.Is(err, stores.ErrRefreshRedisUnavailable) ||
		errors.Is(err, stores.ErrBlacklistRedisUnavailable) ||
		errors.Is(err, stores.ErrCaptchaRedisUnavailable) ||
		errors.Is(err, limiters.ErrAttemptsUnavailable) ||
		errors.Is(err, limiters.ErrCooldownUnavailable)
}
