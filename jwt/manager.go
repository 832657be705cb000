package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sistemago/authkit/keys"
)

// TokenType distinguishes access tokens from refresh tokens. The type is a
// signed claim, so a refresh token can never pass where an access token is
// expected and vice versa.
type TokenType string

const (
	// TypeAccess marks short-lived tokens presented on protected requests.
	TypeAccess TokenType = "access"
	// TypeRefresh marks long-lived tokens exchanged for new token pairs.
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrInvalidSignature means the token was not signed by the active keypair.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired means the token's exp claim has passed.
	ErrExpired = errors.New("token expired")
	// ErrWrongType means a valid token was presented where the other type was expected.
	ErrWrongType = errors.New("unexpected token type")
	// ErrMalformed means the token could not be parsed at all.
	ErrMalformed = errors.New("malformed token")
)

// Config holds token issuance parameters. TTLs are policy, not protocol:
// the defaults in the root package are 1 hour for access and 180 days for
// refresh.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Claims is the signed claim set carried by both token types.
type Claims struct {
	Role      string    `json:"role"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Manager signs and validates tokens against the keypair held by the
// keys.Manager. It is safe for concurrent use; key rotation is handled
// entirely inside the key manager's lock.
type Manager struct {
	config Config
	keys   *keys.Manager
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config, km *keys.Manager) (*Manager, error) {
	if km == nil {
		return nil, errors.New("nil key manager")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg, keys: km}, nil
}

// IssueAccess signs a new access token for the subject. The returned id is
// the token's jti claim, used later for blacklisting on logout.
func (m *Manager) IssueAccess(subject, role string) (token string, id string, err error) {
	return m.issue(subject, role, TypeAccess, uuid.NewString(), m.config.AccessTTL)
}

// IssueRefresh signs a new refresh token whose jti references the given
// refresh-token record id.
func (m *Manager) IssueRefresh(subject, role, recordID string) (string, error) {
	token, _, err := m.issue(subject, role, TypeRefresh, recordID, m.config.RefreshTTL)
	return token, err
}

func (m *Manager) issue(subject, role string, typ TokenType, id string, ttl time.Duration) (string, string, error) {
	now := time.Now()
	claims := Claims{
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.keys.SignKey())
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, id, nil
}

// Validate verifies the signature against the currently active verify key,
// checks expiry and issuer, and requires the token type to match. It returns
// the claims or exactly one of the typed failures declared above.
func (m *Manager) Validate(tokenStr string, expected TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.keys.VerifyKey(), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		default:
			return nil, ErrInvalidSignature
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	if claims.TokenType != expected {
		return nil, ErrWrongType
	}
	return claims, nil
}
