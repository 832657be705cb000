package authkit

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig failed validation: %v", err)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "empty keys dir",
			mutate:    func(c *Config) { c.Keys.Dir = "" },
			wantValid: false,
		},
		{
			name:      "zero access ttl",
			mutate:    func(c *Config) { c.JWT.AccessTTL = 0 },
			wantValid: false,
		},
		{
			name: "refresh shorter than access",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = time.Hour
				c.JWT.RefreshTTL = time.Minute
			},
			wantValid: false,
		},
		{
			name:      "leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:      "leeway too large",
			mutate:    func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "argon2 memory too low",
			mutate:    func(c *Config) { c.Password.Memory = 1024 },
			wantValid: false,
		},
		{
			name:      "argon2 short salt",
			mutate:    func(c *Config) { c.Password.SaltLength = 8 },
			wantValid: false,
		},
		{
			name:      "zero captcha threshold",
			mutate:    func(c *Config) { c.Attempts.CaptchaThreshold = 0 },
			wantValid: false,
		},
		{
			name: "lock threshold below captcha threshold",
			mutate: func(c *Config) {
				c.Attempts.CaptchaThreshold = 10
				c.Attempts.LockThreshold = 5
			},
			wantValid: false,
		},
		{
			name:      "captcha too short",
			mutate:    func(c *Config) { c.Captcha.Length = 2 },
			wantValid: false,
		},
		{
			name:      "captcha ttl too long",
			mutate:    func(c *Config) { c.Captcha.TTL = 2 * time.Hour },
			wantValid: false,
		},
		{
			name:      "zero verification ttl",
			mutate:    func(c *Config) { c.Verification.TokenTTL = 0 },
			wantValid: false,
		},
		{
			name:      "negative reset cooldown",
			mutate:    func(c *Config) { c.PasswordReset.RequestCooldown = -time.Second },
			wantValid: false,
		},
		{
			name:      "zero reset cooldown valid",
			mutate:    func(c *Config) { c.PasswordReset.RequestCooldown = 0 },
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestBuilderRequiresRedisAndUserStore(t *testing.T) {
	cfg := testConfig(t)

	if _, err := New().WithConfig(cfg).WithUserStore(newMemoryUserStore()).Build(); err == nil {
		t.Fatal("expected an error without a redis client")
	}

	_, rdb := newRootTestRedis(t)

	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected an error without a user store")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newRootTestRedis(t)

	builder := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithUserStore(newMemoryUserStore())

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected the second Build to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	_, rdb := newRootTestRedis(t)

	cfg := testConfig(t)
	cfg.JWT.AccessTTL = 0

	if _, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(newMemoryUserStore()).
		Build(); err == nil {
		t.Fatal("expected a config validation error")
	}
}
