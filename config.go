package authkit

import (
	"errors"
	"time"
)

// Config carries every policy knob the engine honors. Zero values are not
// usable; start from [DefaultConfig] and override.
type Config struct {
	Keys          KeysConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Attempts      AttemptsConfig
	Captcha       CaptchaConfig
	Verification  VerificationConfig
	PasswordReset PasswordResetConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

// KeysConfig locates the RSA keypair on disk. Build loads the pair from Dir
// or generates and persists a new one when absent.
type KeysConfig struct {
	Dir string
}

// JWTConfig holds token issuance parameters. TTLs are policy, not protocol.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// PasswordConfig holds Argon2id parameters for the default hasher. Ignored
// when a custom [PasswordHasher] is supplied to the builder.
type PasswordConfig struct {
	Memory      uint32 // in KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AttemptsConfig holds the escalation thresholds shared by the login and
// password-reset attempt namespaces. With FailOpenOnError set, a failure that
// cannot be recorded no longer blocks the request; gating reads (captcha
// required, lockout) always fail closed regardless.
type AttemptsConfig struct {
	CaptchaThreshold int
	LockThreshold    int
	Window           time.Duration
	LockoutDuration  time.Duration
	FailOpenOnError  bool
}

// CaptchaConfig controls challenge generation.
type CaptchaConfig struct {
	Length int
	TTL    time.Duration
}

// VerificationConfig controls email-verification tokens.
type VerificationConfig struct {
	TokenTTL time.Duration
}

// PasswordResetConfig controls reset tokens and the per-email request
// cooldown that follows a successfully sent reset mail.
type PasswordResetConfig struct {
	TokenTTL        time.Duration
	RequestCooldown time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 1 hour access tokens,
// 180 day refresh tokens, captcha after 5 failures and lockout after 10
// within a 30 minute window, 5 character captcha codes valid 10 minutes,
// 24 hour verification tokens, 2 hour reset tokens with a 1 minute request
// cooldown.
func DefaultConfig() Config {
	return Config{
		Keys: KeysConfig{
			Dir: "keys",
		},
		JWT: JWTConfig{
			AccessTTL:  time.Hour,
			RefreshTTL: 180 * 24 * time.Hour,
			Issuer:     "authkit",
			Leeway:     30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        1,
			Parallelism: 4,
			SaltLength:  16,
			KeyLength:   32,
		},
		Attempts: AttemptsConfig{
			CaptchaThreshold: 5,
			LockThreshold:    10,
			Window:           30 * time.Minute,
			LockoutDuration:  15 * time.Minute,
			FailOpenOnError:  false,
		},
		Captcha: CaptchaConfig{
			Length: 5,
			TTL:    10 * time.Minute,
		},
		Verification: VerificationConfig{
			TokenTTL: 24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:        2 * time.Hour,
			RequestCooldown: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate rejects configurations the engine cannot run safely under.
func (c *Config) Validate() error {
	if c.Keys.Dir == "" {
		return errors.New("Keys Dir is required")
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KiB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password SaltLength and KeyLength must be >= 16")
	}

	if c.Attempts.CaptchaThreshold <= 0 {
		return errors.New("Attempts CaptchaThreshold must be > 0")
	}
	if c.Attempts.LockThreshold <= c.Attempts.CaptchaThreshold {
		return errors.New("Attempts LockThreshold must be > CaptchaThreshold")
	}
	if c.Attempts.Window <= 0 {
		return errors.New("Attempts Window must be > 0")
	}
	if c.Attempts.LockoutDuration <= 0 {
		return errors.New("Attempts LockoutDuration must be > 0")
	}

	if c.Captcha.Length < 4 || c.Captcha.Length > 10 {
		return errors.New("Captcha Length must be between 4 and 10")
	}
	if c.Captcha.TTL <= 0 || c.Captcha.TTL > time.Hour {
		return errors.New("Captcha TTL must be between 0 and 1h")
	}

	if c.Verification.TokenTTL <= 0 {
		return errors.New("Verification TokenTTL must be > 0")
	}

	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.RequestCooldown < 0 {
		return errors.New("PasswordReset RequestCooldown must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
