// Package keys owns the RSA signing keypair used for token issuance and
// validation. The keypair is generated on first start, persisted as PEM files
// in a configurable directory, and reloaded on restart. Regeneration is an
// explicit operation that atomically replaces the pair; there is never more
// than one active keypair, and no grace overlap — every token signed under
// the previous pair becomes invalid.
package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	keySize        = 2048
	privateKeyFile = "private_key.pem"
	publicKeyFile  = "public_key.pem"
)

// ErrKeyPairUnavailable indicates the keypair could not be loaded, generated,
// or persisted.
var ErrKeyPairUnavailable = errors.New("signing keypair unavailable")

// Config controls where the keypair is persisted.
type Config struct {
	Directory string
}

// Manager holds the active signing keypair behind a read/write lock.
// SignKey and VerifyKey take the read side; ForceRegenerate takes the write
// side, so callers never observe a torn pair mid-swap.
type Manager struct {
	mu      sync.RWMutex
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	dir     string
}

// LoadOrGenerate reads the keypair from the configured directory, generating
// and persisting a fresh pair when none exists or the stored pair fails
// validation. Errors here are fatal to engine construction: the process must
// not start without keys.
func LoadOrGenerate(cfg Config) (*Manager, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("%w: empty key directory", ErrKeyPairUnavailable)
	}
	if err := os.MkdirAll(cfg.Directory, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyPairUnavailable, err)
	}

	m := &Manager{dir: cfg.Directory}

	priv, pub, err := loadPair(cfg.Directory)
	if err == nil && validatePair(priv, pub) {
		m.private = priv
		m.public = pub
		return m, nil
	}

	priv, pub, err = generateAndPersist(cfg.Directory)
	if err != nil {
		return nil, err
	}
	m.private = priv
	m.public = pub
	return m, nil
}

// SignKey returns the active private key.
func (m *Manager) SignKey() *rsa.PrivateKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.private
}

// VerifyKey returns the active public key.
func (m *Manager) VerifyKey() *rsa.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.public
}

// ForceRegenerate replaces the active keypair with a freshly generated one
// and persists it. On any failure the previous pair stays active and
// persisted state is untouched. Callers blocked in SignKey/VerifyKey proceed
// against either the old pair or the new one, never a mix.
func (m *Manager) ForceRegenerate() error {
	priv, pub, err := generateAndPersist(m.dir)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.private = priv
	m.public = pub
	m.mu.Unlock()
	return nil
}

func generateAndPersist(dir string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyPairUnavailable, err)
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: mustMarshalPKCS8(priv),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyPairUnavailable, err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	})

	// Write to temp files first so a failed write never clobbers a readable
	// pair on disk.
	if err := writeFileAtomic(filepath.Join(dir, privateKeyFile), privPEM, 0o600); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyPairUnavailable, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, publicKeyFile), pubPEM, 0o644); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyPairUnavailable, err)
	}

	return priv, &priv.PublicKey, nil
}

func mustMarshalPKCS8(priv *rsa.PrivateKey) []byte {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		// Marshalling an in-memory RSA key cannot fail with valid input.
		panic(err)
	}
	return der
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func loadPair(dir string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privData, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, nil, err
	}
	pubData, err := os.ReadFile(filepath.Join(dir, publicKeyFile))
	if err != nil {
		return nil, nil, err
	}

	priv, err := parsePrivateKey(privData)
	if err != nil {
		return nil, nil, err
	}
	pub, err := parsePublicKey(pubData)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid private key PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.New("invalid private key encoding")
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return priv, nil
}

func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.New("invalid public key encoding")
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return pub, nil
}

// validatePair proves the two halves belong together with a sign/verify
// probe before trusting a pair loaded from disk.
func validatePair(priv *rsa.PrivateKey, pub *rsa.PublicKey) bool {
	if priv == nil || pub == nil {
		return false
	}
	digest := sha256.Sum256([]byte("authkit-keypair-probe"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return false
	}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
