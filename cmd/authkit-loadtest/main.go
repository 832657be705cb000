// Command authkit-loadtest measures engine throughput against a live Redis
// or an embedded miniredis. It seeds a batch of sessions through real logins,
// then runs a validate phase and a refresh phase and prints latency
// percentiles for each.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sistemago/authkit"
	"github.com/sistemago/authkit/password"
)

type sessionState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		sessions    = flag.Int("sessions", 1000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	keyDir, err := os.MkdirTemp("", "authkit-loadtest-keys")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir failed: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(keyDir)

	cfg := authkit.DefaultConfig()
	cfg.Keys.Dir = keyDir
	// Light Argon2 so seeding is bounded by Redis, not by hashing.
	cfg.Password = authkit.PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 24 * time.Hour

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "argon2 init failed: %v\n", err)
		os.Exit(1)
	}
	const seedPassword = "loadtest-password-123"
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}

	users := newStubStore()
	users.put(&authkit.UserRecord{
		ID:            "u1",
		Email:         "alice@example.com",
		PasswordHash:  hash,
		Role:          authkit.RoleUser,
		Enabled:       true,
		EmailVerified: true,
		CreatedAt:     time.Now(),
	})

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(users).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	states := make([]*sessionState, *sessions)
	for i := range states {
		pair, err := engine.Authenticate(ctx, authkit.Credentials{
			Email:    "alice@example.com",
			Password: seedPassword,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = &sessionState{
			access:  pair.AccessToken,
			refresh: pair.RefreshToken,
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runValidatePhase(ctx, engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
}

func runValidatePhase(ctx context.Context, engine *authkit.Engine, states []*sessionState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := states[r.Intn(len(states))]
				state.mu.Lock()
				access := state.access
				state.mu.Unlock()

				t0 := time.Now()
				_, err := engine.ValidateAccessToken(ctx, access)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *authkit.Engine, states []*sessionState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := states[r.Intn(len(states))]

				// Hold the lock across the rotation so workers never race
				// each other into reuse detection on the same family.
				state.mu.Lock()
				t0 := time.Now()
				pair, err := engine.Refresh(ctx, state.refresh)
				d := time.Since(t0)
				if err == nil {
					state.access = pair.AccessToken
					state.refresh = pair.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// stubStore is a minimal in-memory UserStore for the load generator.
type stubStore struct {
	mu      sync.Mutex
	byID    map[string]*authkit.UserRecord
	byEmail map[string]string
}

func newStubStore() *stubStore {
	return &stubStore{
		byID:    make(map[string]*authkit.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (s *stubStore) put(user *authkit.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.byID[user.ID] = &copied
	s.byEmail[user.Email] = user.ID
}

func (s *stubStore) GetUserByEmail(_ context.Context, email string) (*authkit.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, authkit.ErrUserNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *stubStore) GetUserByID(_ context.Context, id string) (*authkit.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, authkit.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubStore) GetUserByVerificationToken(_ context.Context, token string) (*authkit.UserRecord, error) {
	return nil, authkit.ErrUserNotFound
}

func (s *stubStore) GetUserByResetToken(_ context.Context, token string) (*authkit.UserRecord, error) {
	return nil, authkit.ErrUserNotFound
}

func (s *stubStore) CreateUser(_ context.Context, user *authkit.UserRecord) error {
	s.put(user)
	return nil
}

func (s *stubStore) UpdateUser(_ context.Context, user *authkit.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[user.ID]; !ok {
		return authkit.ErrUserNotFound
	}
	copied := *user
	s.byID[user.ID] = &copied
	return nil
}

func (s *stubStore) CountUsers(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byID)), nil
}
