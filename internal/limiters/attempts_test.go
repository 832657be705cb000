package limiters

import (
	"testing"
	"time"
)

func TestAttemptEscalation(t *testing.T) {
	_, rdb := newTestRedis(t)
	tracker := NewAttemptTracker(rdb, "login", testAttemptConfig())

	// Failures 1 and 2 stay normal; 3 and 4 require captcha; 5 locks.
	expected := []State{StateNormal, StateNormal, StateCaptchaRequired, StateCaptchaRequired, StateLocked}
	for i, want := range expected {
		state, err := tracker.RecordFailure(testCtx(), "key")
		if err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i+1, err)
		}
		if state != want {
			t.Fatalf("failure %d: state = %v, want %v", i+1, state, want)
		}
	}
}

func TestAttemptStateReflectsThresholds(t *testing.T) {
	_, rdb := newTestRedis(t)
	tracker := NewAttemptTracker(rdb, "login", testAttemptConfig())

	state, err := tracker.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateNormal {
		t.Fatalf("fresh key state = %v, want StateNormal", state)
	}

	// One below the captcha threshold.
	for i := 0; i < 2; i++ {
		if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	state, err = tracker.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateNormal {
		t.Fatalf("below-threshold state = %v, want StateNormal", state)
	}

	// Exactly at the captcha threshold.
	if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	state, err = tracker.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateCaptchaRequired {
		t.Fatalf("at-threshold state = %v, want StateCaptchaRequired", state)
	}
}

func TestAttemptLockout(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testAttemptConfig()
	tracker := NewAttemptTracker(rdb, "login", cfg)

	for i := 0; i < cfg.LockThreshold; i++ {
		if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	state, err := tracker.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateLocked {
		t.Fatalf("state = %v, want StateLocked", state)
	}

	remaining, err := tracker.RemainingLockout(testCtx(), "key")
	if err != nil {
		t.Fatalf("RemainingLockout failed: %v", err)
	}
	if remaining <= 0 || remaining > cfg.LockoutDuration {
		t.Fatalf("remaining = %v, want within (0, %v]", remaining, cfg.LockoutDuration)
	}
}

func TestAttemptLockoutExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := testAttemptConfig()
	tracker := NewAttemptTracker(rdb, "login", cfg)

	for i := 0; i < cfg.LockThreshold; i++ {
		if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	mr.FastForward(cfg.LockoutDuration + time.Second)

	remaining, err := tracker.RemainingLockout(testCtx(), "key")
	if err != nil {
		t.Fatalf("RemainingLockout failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %v, want 0 after lockout expiry", remaining)
	}
}

func TestAttemptSuccessClearsEverything(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testAttemptConfig()
	tracker := NewAttemptTracker(rdb, "login", cfg)

	for i := 0; i < cfg.LockThreshold; i++ {
		if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	if err := tracker.RecordSuccess(testCtx(), "key"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	state, err := tracker.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateNormal {
		t.Fatalf("state = %v, want StateNormal after success", state)
	}
	remaining, err := tracker.RemainingLockout(testCtx(), "key")
	if err != nil {
		t.Fatalf("RemainingLockout failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %v, want 0 after success", remaining)
	}
}

func TestAttemptWindowIsFixed(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := testAttemptConfig()
	tracker := NewAttemptTracker(rdb, "login", cfg)

	if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if _, err := tracker.RecordFailure(testCtx(), "key"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	// Window starts at the first failure; later failures do not extend it.
	mr.FastForward(cfg.Window + time.Second)

	state, err := tracker.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateNormal {
		t.Fatalf("state = %v, want StateNormal after window expiry", state)
	}

	// The next failure starts a fresh window at count 1.
	next, err := tracker.RecordFailure(testCtx(), "key")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if next != StateNormal {
		t.Fatalf("state = %v, want StateNormal on fresh window", next)
	}
}

func TestAttemptNamespacesAreIsolated(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := testAttemptConfig()
	login := NewAttemptTracker(rdb, "login", cfg)
	reset := NewAttemptTracker(rdb, "reset", cfg)

	for i := 0; i < cfg.LockThreshold; i++ {
		if _, err := login.RecordFailure(testCtx(), "key"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	state, err := reset.State(testCtx(), "key")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if state != StateNormal {
		t.Fatalf("reset namespace state = %v, want StateNormal", state)
	}
}
