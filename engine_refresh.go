package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sistemago/authkit/internal/stores"
	"github.com/sistemago/authkit/jwt"
)

// Refresh exchanges a valid refresh token for a fresh pair, revoking the
// presented one in the same atomic step. Presenting an already-rotated token
// is treated as theft: the whole family is revoked and the caller gets
// [ErrTokenReuseDetected], which is never retryable.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Validate(refreshToken, jwt.TypeRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrInvalidOrExpiredToken, func() map[string]string {
			return map[string]string{"reason": "token_validation"}
		})
		return nil, ErrInvalidOrExpiredToken
	}

	current, err := e.refreshStore.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, stores.ErrRefreshNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrInvalidOrExpiredToken, func() map[string]string {
				return map[string]string{"reason": "record_not_found"}
			})
			return nil, ErrInvalidOrExpiredToken
		}
		e.metricInc(MetricBackendError)
		return nil, ErrBackendUnavailable
	}

	successor := newRefreshRecord(current.UserID, current.FamilyID, e.config.JWT.RefreshTTL)

	previous, err := e.refreshStore.Rotate(ctx, claims.ID, successor, e.config.JWT.RefreshTTL)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrRefreshReused):
			// Revoke every descendant of the same login. Best-effort: the
			// reuse signal stands even if some records cannot be reached.
			_ = e.refreshStore.RevokeFamily(ctx, current.FamilyID)
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, current.UserID, "", ErrTokenReuseDetected, func() map[string]string {
				return map[string]string{"family_id": current.FamilyID}
			})
			return nil, ErrTokenReuseDetected
		case errors.Is(err, stores.ErrRefreshRevoked), errors.Is(err, stores.ErrRefreshNotFound):
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, current.UserID, "", ErrInvalidOrExpiredToken, func() map[string]string {
				return map[string]string{"reason": "record_revoked_or_expired"}
			})
			return nil, ErrInvalidOrExpiredToken
		default:
			e.metricInc(MetricBackendError)
			return nil, ErrBackendUnavailable
		}
	}

	access, _, err := e.tokens.IssueAccess(claims.Subject, claims.Role)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	refresh, err := e.tokens.IssueRefresh(claims.Subject, claims.Role, successor.ID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, previous.UserID, "", nil, nil)

	now := time.Now()
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(e.config.JWT.AccessTTL),
		RefreshExpiresAt: now.Add(e.config.JWT.RefreshTTL),
	}, nil
}

// newRefreshRecord builds a fresh record. An empty familyID starts a new
// family rooted at the record's own id.
func newRefreshRecord(userID, familyID string, ttl time.Duration) *stores.RefreshRecord {
	id := uuid.NewString()
	if familyID == "" {
		familyID = id
	}
	now := time.Now()
	return &stores.RefreshRecord{
		ID:        id,
		UserID:    userID,
		FamilyID:  familyID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}
