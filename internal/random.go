package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
	"strings"
)

const (
	// secretTokenSize is the entropy of verification and reset tokens.
	// 32 bytes encode to a fixed 43-character base64url string.
	secretTokenSize = 32

	challengeIDSize = 16

	// captchaCharset omits visually ambiguous characters (0/O, 1/I).
	captchaCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewSecretToken returns a high-entropy, URL-safe token string for email
// verification and password reset links.
func NewSecretToken() (string, error) {
	raw := make([]byte, secretTokenSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewChallengeID returns a compact random identifier for captcha challenges.
func NewChallengeID() (string, error) {
	raw := make([]byte, challengeIDSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewCaptchaCode returns a random challenge code of the given length drawn
// from an unambiguous uppercase alphabet.
func NewCaptchaCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(captchaCharset)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(captchaCharset[n.Int64()])
	}
	return b.String(), nil
}

// HashAnswer normalizes a captcha answer (trim, lowercase) and hashes it.
// Both the stored expected answer and user input go through this path so the
// case policy is applied consistently.
func HashAnswer(answer string) [32]byte {
	return sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(answer))))
}
