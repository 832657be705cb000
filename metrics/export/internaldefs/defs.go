package internaldefs

import (
	authkit "github.com/sistemago/authkit"
)

// CounterDef binds a counter id to its stable exposition name. Both exporters
// iterate the same slice so the two surfaces never drift apart.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful login attempts."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed login attempts."},
	{ID: authkit.MetricLoginCaptchaRequired, Name: "authkit_login_captcha_required_total", Help: "Login attempts gated on a captcha."},
	{ID: authkit.MetricLoginLocked, Name: "authkit_login_locked_total", Help: "Login attempts rejected by an active lockout."},
	{ID: authkit.MetricRefreshSuccess, Name: "authkit_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authkit.MetricRefreshFailure, Name: "authkit_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: authkit.MetricRefreshReuseDetected, Name: "authkit_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authkit.MetricLogout, Name: "authkit_logout_total", Help: "Single-session logout operations."},
	{ID: authkit.MetricLogoutAll, Name: "authkit_logout_all_total", Help: "Logout-all operations."},
	{ID: authkit.MetricRegisterSuccess, Name: "authkit_register_success_total", Help: "Successful registrations."},
	{ID: authkit.MetricRegisterDuplicate, Name: "authkit_register_duplicate_total", Help: "Registrations rejected as duplicate email or CPF."},
	{ID: authkit.MetricValidateSuccess, Name: "authkit_validate_success_total", Help: "Access tokens validated successfully."},
	{ID: authkit.MetricValidateBlacklisted, Name: "authkit_validate_blacklisted_total", Help: "Access tokens rejected by the blacklist."},
	{ID: authkit.MetricValidateFailure, Name: "authkit_validate_failure_total", Help: "Access tokens rejected by signature, expiry, or type checks."},
	{ID: authkit.MetricCaptchaGenerated, Name: "authkit_captcha_generated_total", Help: "Captcha challenges generated."},
	{ID: authkit.MetricCaptchaSuccess, Name: "authkit_captcha_success_total", Help: "Captcha answers accepted."},
	{ID: authkit.MetricCaptchaFailure, Name: "authkit_captcha_failure_total", Help: "Captcha answers rejected."},
	{ID: authkit.MetricVerificationRequest, Name: "authkit_verification_request_total", Help: "Email verification tokens issued."},
	{ID: authkit.MetricVerificationSuccess, Name: "authkit_verification_success_total", Help: "Successful email verifications."},
	{ID: authkit.MetricVerificationFailure, Name: "authkit_verification_failure_total", Help: "Failed email verifications."},
	{ID: authkit.MetricResetRequest, Name: "authkit_password_reset_request_total", Help: "Password reset requests accepted."},
	{ID: authkit.MetricResetSuccess, Name: "authkit_password_reset_success_total", Help: "Successful password reset confirmations."},
	{ID: authkit.MetricResetFailure, Name: "authkit_password_reset_failure_total", Help: "Failed password reset requests or confirmations."},
	{ID: authkit.MetricResetRateLimited, Name: "authkit_password_reset_rate_limited_total", Help: "Password reset requests rejected by lockout or cooldown."},
	{ID: authkit.MetricKeyRotation, Name: "authkit_key_rotation_total", Help: "Signing keypair regenerations."},
	{ID: authkit.MetricBackendError, Name: "authkit_backend_error_total", Help: "Operations that failed on an unreachable backend."},
}
