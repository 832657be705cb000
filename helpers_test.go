package authkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sistemago/authkit/password"
)

const (
	testPassword = "correct-password-123"
	testCPF      = "52998224725"
	testCPF2     = "11144477735"
)

// memoryUserStore is an in-memory UserStore for tests.
type memoryUserStore struct {
	mu      sync.Mutex
	byID    map[string]*UserRecord
	byEmail map[string]string

	createErr error
	updateErr error
	lookupErr error

	updateCalls int
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{
		byID:    make(map[string]*UserRecord),
		byEmail: make(map[string]string),
	}
}

func (s *memoryUserStore) clone(user *UserRecord) *UserRecord {
	out := *user
	return &out
}

func (s *memoryUserStore) GetUserByEmail(_ context.Context, email string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.clone(s.byID[id]), nil
}

func (s *memoryUserStore) GetUserByID(_ context.Context, id string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.clone(user), nil
}

func (s *memoryUserStore) GetUserByVerificationToken(_ context.Context, token string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byID {
		if user.VerificationToken != "" && user.VerificationToken == token {
			return s.clone(user), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memoryUserStore) GetUserByResetToken(_ context.Context, token string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.byID {
		if user.ResetToken != "" && user.ResetToken == token {
			return s.clone(user), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memoryUserStore) CreateUser(_ context.Context, user *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.byEmail[user.Email]; exists {
		return ErrEmailAlreadyInUse
	}
	for _, existing := range s.byID {
		if existing.CPF == user.CPF {
			return ErrCPFAlreadyInUse
		}
	}
	s.byID[user.ID] = s.clone(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *memoryUserStore) UpdateUser(_ context.Context, user *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.byID[user.ID]; !ok {
		return ErrUserNotFound
	}
	s.byID[user.ID] = s.clone(user)
	return nil
}

func (s *memoryUserStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return 0, s.lookupErr
	}
	return int64(len(s.byID)), nil
}

// mutate applies fn to the stored record, bypassing the engine.
func (s *memoryUserStore) mutate(t *testing.T, email string, fn func(*UserRecord)) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		t.Fatalf("no stored user for %s", email)
	}
	fn(s.byID[id])
}

func (s *memoryUserStore) get(t *testing.T, email string) *UserRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		t.Fatalf("no stored user for %s", email)
	}
	return s.clone(s.byID[id])
}

// mockMailer records every delivered token.
type mockMailer struct {
	mu                 sync.Mutex
	verificationTokens map[string]string
	resetTokens        map[string]string
	sendErr            error
}

func newMockMailer() *mockMailer {
	return &mockMailer{
		verificationTokens: make(map[string]string),
		resetTokens:        make(map[string]string),
	}
}

func (m *mockMailer) SendVerification(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.verificationTokens[email] = token
	return nil
}

func (m *mockMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.resetTokens[email] = token
	return nil
}

func (m *mockMailer) verificationToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verificationTokens[email]
}

func (m *mockMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetTokens[email]
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Keys.Dir = t.TempDir()
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine *Engine
	users  *memoryUserStore
	mailer *mockMailer
	redis  *miniredis.Miniredis
	hasher *password.Argon2
}

func newTestEnv(t *testing.T, mutators ...func(*Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig(t)
	for _, fn := range mutators {
		fn(&cfg)
	}

	users := newMemoryUserStore()
	mailer := newMockMailer()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	hasher, err := newTestEnvHasher(cfg)
	if err != nil {
		t.Fatalf("hasher setup failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{
		engine: engine,
		users:  users,
		mailer: mailer,
		redis:  mr,
		hasher: hasher,
	}
}

func newRootTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func newTestEnvHasher(cfg Config) (*password.Argon2, error) {
	return password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
}

// seedUser inserts an account directly into the user store.
func (env *testEnv) seedUser(t *testing.T, email string, opts ...func(*UserRecord)) *UserRecord {
	t.Helper()

	hash, err := env.hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("seed hash failed: %v", err)
	}

	user := &UserRecord{
		ID:            uuid.NewString(),
		Email:         email,
		CPF:           testCPF,
		PasswordHash:  hash,
		Role:          RoleUser,
		Enabled:       true,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}
	for _, fn := range opts {
		fn(user)
	}

	if err := env.users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	return user
}

func testCtxRoot() context.Context {
	return context.Background()
}
