package authkit

import (
	"context"
	"time"

	"github.com/sistemago/authkit/jwt"
)

// Logout revokes the presented refresh token, or with RevokeAll the user's
// entire refresh population. When an access token is supplied its id is
// blacklisted for the token's remaining lifetime, so it dies before natural
// expiry. Logout is idempotent: revoking an unknown or already-revoked token
// is not an error.
func (e *Engine) Logout(ctx context.Context, input LogoutInput) error {
	if e == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Validate(input.RefreshToken, jwt.TypeRefresh)
	if err != nil {
		e.emitAudit(ctx, auditEventLogout, false, "", "", ErrInvalidOrExpiredToken, nil)
		return ErrInvalidOrExpiredToken
	}

	var userID string
	if record, err := e.refreshStore.Get(ctx, claims.ID); err == nil {
		userID = record.UserID
	}

	if input.RevokeAll && userID != "" {
		if err := e.refreshStore.RevokeAllForUser(ctx, userID); err != nil {
			e.metricInc(MetricBackendError)
			return ErrBackendUnavailable
		}
		e.metricInc(MetricLogoutAll)
	} else {
		if err := e.refreshStore.Revoke(ctx, claims.ID); err != nil {
			e.metricInc(MetricBackendError)
			return ErrBackendUnavailable
		}
		e.metricInc(MetricLogout)
	}

	if input.AccessToken != "" {
		if err := e.blacklistAccessToken(ctx, input.AccessToken); err != nil {
			return err
		}
	}

	event := auditEventLogout
	if input.RevokeAll {
		event = auditEventLogoutAll
	}
	e.emitAudit(ctx, event, true, userID, "", nil, nil)
	return nil
}

// blacklistAccessToken records a still-valid access token's id until the
// moment it would expire anyway. Expired or malformed tokens need nothing.
func (e *Engine) blacklistAccessToken(ctx context.Context, accessToken string) error {
	claims, err := e.tokens.Validate(accessToken, jwt.TypeAccess)
	if err != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := e.blacklist.Add(ctx, claims.ID, ttl); err != nil {
		e.metricInc(MetricBackendError)
		return ErrBackendUnavailable
	}
	return nil
}
