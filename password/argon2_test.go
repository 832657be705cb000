package password

import (
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	hash, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	ok, err := hasher.Verify("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = hasher.Verify("wrong password", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatching password to fail")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	first, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestHashIsPHCEncoded(t *testing.T) {
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	hash, err := hasher.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 6 {
		t.Fatalf("expected 6 PHC segments, got %d", len(parts))
	}
}

func TestVerifyHonorsEmbeddedParameters(t *testing.T) {
	strong, err := NewArgon2(Config{Memory: 16 * 1024, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	hash, err := strong.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// A hasher under different settings must still verify hashes produced
	// with the parameters embedded in the PHC string.
	weak, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	ok, err := weak.Verify("secret", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected verification against embedded parameters")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	for _, encoded := range []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=8192,t=1,p=1$short$short",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
	} {
		if _, err := hasher.Verify("secret", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	bad := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8 * 1024, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range bad {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected rejection", i)
		}
	}
}

func TestHashRejectsEmptyPassword(t *testing.T) {
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	if _, err := hasher.Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
