package authkit

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// buildAuditEnv wires an engine with an audit sink attached, which newTestEnv
// does not do.
func buildAuditEnv(t *testing.T, sink AuditSink) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig(t)
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	users := newMemoryUserStore()
	mailer := newMockMailer()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mailer).
		WithAuditSink(sink).
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

func collectAuditEvents(t *testing.T, sink *ChannelSink, n int) []AuditEvent {
	t.Helper()
	events := make([]AuditEvent, 0, n)
	deadline := time.After(2 * time.Second)
	for len(events) < n {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-deadline:
			return events
		}
	}
	return events
}

func TestAuditSinkReceivesLoginEvents(t *testing.T) {
	sink := NewChannelSink(16)
	env := buildAuditEnv(t, sink)
	env.seedUser(t, "user@example.com")

	if _, err := env.engine.Authenticate(testCtxRoot(), Credentials{
		Email:    "user@example.com",
		Password: testPassword,
	}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	events := collectAuditEvents(t, sink, 1)
	if len(events) == 0 {
		t.Fatal("expected an audit event")
	}
	ev := events[0]
	if ev.EventType != auditEventLoginSuccess {
		t.Fatalf("event type = %q, want %q", ev.EventType, auditEventLoginSuccess)
	}
	if !ev.Success {
		t.Fatal("expected a success event")
	}
	if ev.UserID == "" {
		t.Fatal("expected the user id populated")
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("expected a timestamp")
	}
}

func TestAuditFailedLoginRecordsErrorCode(t *testing.T) {
	sink := NewChannelSink(16)
	env := buildAuditEnv(t, sink)
	env.seedUser(t, "user@example.com")

	_, _ = env.engine.Authenticate(testCtxRoot(), Credentials{
		Email:    "user@example.com",
		Password: "wrong-password-000",
	})

	events := collectAuditEvents(t, sink, 1)
	if len(events) == 0 {
		t.Fatal("expected an audit event")
	}
	ev := events[0]
	if ev.EventType != auditEventLoginFailure {
		t.Fatalf("event type = %q, want %q", ev.EventType, auditEventLoginFailure)
	}
	if ev.Success {
		t.Fatal("expected a failure event")
	}
	if ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("error code = %q, want %q", ev.Error, auditErrInvalidCredentials)
	}
	if ev.ClientKey != "user@example.com" {
		t.Fatalf("client key = %q, want the submitted email", ev.ClientKey)
	}
}

func TestAuditEventCarriesClientIP(t *testing.T) {
	sink := NewChannelSink(16)
	env := buildAuditEnv(t, sink)
	env.seedUser(t, "user@example.com")

	ctx := WithClientIP(testCtxRoot(), "203.0.113.7")
	if _, err := env.engine.Authenticate(ctx, Credentials{
		Email:    "user@example.com",
		Password: testPassword,
	}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	events := collectAuditEvents(t, sink, 1)
	if len(events) == 0 {
		t.Fatal("expected an audit event")
	}
	if events[0].IP != "203.0.113.7" {
		t.Fatalf("ip = %q, want 203.0.113.7", events[0].IP)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := NewChannelSink(32)
	env := buildAuditEnv(t, sink)
	env.seedUser(t, "user@example.com")

	pair, err := env.engine.Authenticate(testCtxRoot(), Credentials{
		Email:    "user@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if _, err := env.engine.Refresh(testCtxRoot(), pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	hash := env.users.get(t, "user@example.com").PasswordHash
	needles := []string{testPassword, pair.RefreshToken, hash}

	events := collectAuditEvents(t, sink, 2)
	if len(events) == 0 {
		t.Fatal("expected audit events")
	}
	for _, ev := range events {
		for _, needle := range needles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in the error field")
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in metadata")
				}
			}
		}
	}
}

func TestAuditDisabledEngineEmitsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "user@example.com")

	// Default config leaves audit disabled; the dispatcher is nil and every
	// emit is a no-op. This must not panic or block.
	_, _ = env.engine.Authenticate(testCtxRoot(), Credentials{
		Email:    "user@example.com",
		Password: "wrong-password-000",
	})
	if env.engine.AuditDropped() != 0 {
		t.Fatalf("dropped = %d, want 0 with audit disabled", env.engine.AuditDropped())
	}
}

func TestAuditJSONWriterSinkFromEngine(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	env := buildAuditEnv(t, sink)
	env.seedUser(t, "user@example.com")

	if _, err := env.engine.Authenticate(testCtxRoot(), Credentials{
		Email:    "user@example.com",
		Password: testPassword,
	}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	env.engine.Close()

	if !buf.Contains(`"event_type":"login_success"`) {
		t.Fatal("expected a login_success JSON line")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(string(b.buf), v)
}
