package authkit

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/sistemago/authkit/internal/audit"
	"github.com/sistemago/authkit/internal/limiters"
	internalmetrics "github.com/sistemago/authkit/internal/metrics"
	"github.com/sistemago/authkit/internal/stores"
	"github.com/sistemago/authkit/jwt"
	"github.com/sistemago/authkit/keys"
	"github.com/sistemago/authkit/password"
)

const (
	loginAttemptNamespace = "login"
	resetAttemptNamespace = "reset"
	resetCooldownSpace    = "resetreq"
)

// Builder assembles an [Engine]. A builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users  UserStore
	mailer Mailer
	hasher PasswordHasher
	sink   AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithPasswordHasher replaces the default Argon2id hasher. The Password
// section of the config is ignored when a custom hasher is set.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = true
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, loads or generates the signing keypair,
// and wires the engine. A key load/generate failure is fatal here; the engine
// never starts without keys.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}

	km, err := keys.LoadOrGenerate(keys.Config{Directory: cfg.Keys.Dir})
	if err != nil {
		return nil, err
	}

	tm, err := jwt.NewManager(jwt.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
	}, km)
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = NoOpMailer{}
	}

	attemptCfg := limiters.AttemptConfig{
		CaptchaThreshold: cfg.Attempts.CaptchaThreshold,
		LockThreshold:    cfg.Attempts.LockThreshold,
		Window:           cfg.Attempts.Window,
		LockoutDuration:  cfg.Attempts.LockoutDuration,
	}

	engine := &Engine{
		config:        cfg,
		keys:          km,
		tokens:        tm,
		refreshStore:  stores.NewRefreshStore(b.redis, ""),
		blacklist:     stores.NewBlacklistStore(b.redis, ""),
		captchaStore:  stores.NewCaptchaStore(b.redis, ""),
		loginAttempts: limiters.NewAttemptTracker(b.redis, loginAttemptNamespace, attemptCfg),
		resetAttempts: limiters.NewAttemptTracker(b.redis, resetAttemptNamespace, attemptCfg),
		resetCooldown: limiters.NewCooldown(b.redis, resetCooldownSpace, cfg.PasswordReset.RequestCooldown),
		hasher:        hasher,
		users:         b.users,
		mailer:        mailer,
		audit:         audit.NewDispatcher(audit.Config(cfg.Audit), b.sink),
		metrics:       internalmetrics.New(internalmetrics.Config{Enabled: cfg.Metrics.Enabled}),
	}

	b.built = true

	return engine, nil
}
