package authkit

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/sistemago/authkit/internal/audit"
)

// Role is the coarse authorization level carried in token claims.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserRecord is the full account record exchanged with the [UserStore].
// Verification and reset tokens live on the record; a zero time means no
// token is outstanding. EmailVerified and VerificationToken are mutually
// exclusive: a verified user never carries a token.
type UserRecord struct {
	ID           string
	Email        string
	CPF          string
	PasswordHash string
	Role         Role
	Enabled      bool

	EmailVerified         bool
	VerificationToken     string
	VerificationExpiresAt time.Time

	ResetToken     string
	ResetExpiresAt time.Time

	LastLogin time.Time
	CreatedAt time.Time
}

// UserStore is the interface callers must implement to integrate authkit with
// their user database. Lookups return [ErrUserNotFound] when no row matches;
// CreateUser returns [ErrEmailAlreadyInUse] or [ErrCPFAlreadyInUse] on
// uniqueness conflicts. All other errors are treated as backend failures.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	GetUserByID(ctx context.Context, id string) (*UserRecord, error)
	GetUserByVerificationToken(ctx context.Context, token string) (*UserRecord, error)
	GetUserByResetToken(ctx context.Context, token string) (*UserRecord, error)
	CreateUser(ctx context.Context, user *UserRecord) error
	UpdateUser(ctx context.Context, user *UserRecord) error
	CountUsers(ctx context.Context) (int64, error)
}

// Mailer delivers verification and reset tokens. The engine never builds
// URLs; the integrator decides how a token reaches the user.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// NoOpMailer discards all mail. It is the default when no Mailer is supplied.
type NoOpMailer struct{}

func (NoOpMailer) SendVerification(context.Context, string, string) error  { return nil }
func (NoOpMailer) SendPasswordReset(context.Context, string, string) error { return nil }

// PasswordHasher abstracts password hashing so integrators can swap the
// default Argon2id implementation in the password sub-package.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// TokenPair is the result of a successful login, registration, or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Credentials is the input for [Engine.Authenticate]. ClientKey is the
// identifier the attempt tracker counts under, typically the submitted email
// or the client IP; it must be stable across retries from the same actor.
// CaptchaID/CaptchaAnswer are required only once the key has escalated to
// captcha-required.
type Credentials struct {
	Email         string
	Password      string
	ClientKey     string
	CaptchaID     string
	CaptchaAnswer string
}

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email    string
	CPF      string
	Password string
}

// RegisterResult is returned by [Engine.Register]. Tokens are issued
// immediately; email verification gates subsequent logins, not the
// registration response itself.
type RegisterResult struct {
	UserID string
	Role   Role
	Tokens TokenPair
}

// LogoutInput is the input for [Engine.Logout]. AccessToken is optional;
// when present its id is blacklisted for the token's remaining lifetime.
type LogoutInput struct {
	RefreshToken string
	AccessToken  string
	RevokeAll    bool
}

// Captcha is a generated challenge. Code is the expected answer in plaintext;
// the caller renders it (image, audio) and discards it. Only a hash is stored.
type Captcha struct {
	ID        string
	Code      string
	ExpiresAt time.Time
}

// AccessClaims is the validated identity returned by
// [Engine.ValidateAccessToken].
type AccessClaims struct {
	Subject   string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// ResetRequest is the input for [Engine.RequestPasswordReset]. ClientKey
// feeds the reset attempt namespace, independent from the login namespace.
type ResetRequest struct {
	Email         string
	ClientKey     string
	CaptchaID     string
	CaptchaAnswer string
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
