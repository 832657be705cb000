package authkit

import (
	internalmetrics "github.com/sistemago/authkit/internal/metrics"
)

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID = internalmetrics.ID

const (
	MetricLoginSuccess         = internalmetrics.LoginSuccess
	MetricLoginFailure         = internalmetrics.LoginFailure
	MetricLoginCaptchaRequired = internalmetrics.LoginCaptchaRequired
	MetricLoginLocked          = internalmetrics.LoginLocked
	MetricRefreshSuccess       = internalmetrics.RefreshSuccess
	MetricRefreshFailure       = internalmetrics.RefreshFailure
	MetricRefreshReuseDetected = internalmetrics.RefreshReuseDetected
	MetricLogout               = internalmetrics.Logout
	MetricLogoutAll            = internalmetrics.LogoutAll
	MetricRegisterSuccess      = internalmetrics.RegisterSuccess
	MetricRegisterDuplicate    = internalmetrics.RegisterDuplicate
	MetricValidateSuccess      = internalmetrics.ValidateSuccess
	MetricValidateBlacklisted  = internalmetrics.ValidateBlacklisted
	MetricValidateFailure      = internalmetrics.ValidateFailure
	MetricCaptchaGenerated     = internalmetrics.CaptchaGenerated
	MetricCaptchaSuccess       = internalmetrics.CaptchaSuccess
	MetricCaptchaFailure       = internalmetrics.CaptchaFailure
	MetricVerificationRequest  = internalmetrics.VerificationRequest
	MetricVerificationSuccess  = internalmetrics.VerificationSuccess
	MetricVerificationFailure  = internalmetrics.VerificationFailure
	MetricResetRequest         = internalmetrics.ResetRequest
	MetricResetSuccess         = internalmetrics.ResetSuccess
	MetricResetFailure         = internalmetrics.ResetFailure
	MetricResetRateLimited     = internalmetrics.ResetRateLimited
	MetricKeyRotation          = internalmetrics.KeyRotation
	MetricBackendError         = internalmetrics.BackendError
)

// Metrics holds the engine's atomic operation counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = map[MetricID]uint64

// NewMetrics creates a [Metrics] instance. When Enabled is false, all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled: cfg.Enabled,
	})
}
