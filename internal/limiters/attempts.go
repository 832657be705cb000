package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrAttemptsUnavailable indicates the attempt-tracking backend is unreachable.
var ErrAttemptsUnavailable = errors.New("attempt backend unavailable")

// State classifies how far a key has escalated inside the current window.
type State int

const (
	StateNormal State = iota
	StateCaptchaRequired
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateCaptchaRequired:
		return "captcha_required"
	case StateLocked:
		return "locked"
	default:
		return "normal"
	}
}

// AttemptConfig holds the escalation thresholds for one namespace.
type AttemptConfig struct {
	CaptchaThreshold int
	LockThreshold    int
	Window           time.Duration
	LockoutDuration  time.Duration
}

// AttemptTracker counts failures per key in a fixed window. Crossing
// CaptchaThreshold moves the key to StateCaptchaRequired; crossing
// LockThreshold writes a lock key whose TTL is the lockout duration. The
// counter window starts at the first failure and is not extended by later
// ones.
type AttemptTracker struct {
	redis     redis.UniversalClient
	namespace string
	config    AttemptConfig
}

// NewAttemptTracker creates a tracker for one namespace, e.g. "login" or
// "reset". Namespaces never share counters.
func NewAttemptTracker(redisClient redis.UniversalClient, namespace string, cfg AttemptConfig) *AttemptTracker {
	return &AttemptTracker{
		redis:     redisClient,
		namespace: namespace,
		config:    cfg,
	}
}

func (t *AttemptTracker) countKey(key string) string {
	return "aat:" + t.namespace + ":" + key
}

func (t *AttemptTracker) lockKey(key string) string {
	return "aatl:" + t.namespace + ":" + key
}

// RecordFailure increments the failure counter and returns the resulting
// state. The window TTL is set only when the counter is created, so the
// window is fixed, not rolling.
func (t *AttemptTracker) RecordFailure(ctx context.Context, key string) (State, error) {
	count, err := t.redis.Incr(ctx, t.countKey(key)).Result()
	if err != nil {
		return StateNormal, fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
	}

	if count == 1 {
		if err := t.redis.Expire(ctx, t.countKey(key), t.config.Window).Err(); err != nil {
			return StateNormal, fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
		}
	}

	if count >= int64(t.config.LockThreshold) {
		if err := t.redis.Set(ctx, t.lockKey(key), "1", t.config.LockoutDuration).Err(); err != nil {
			return StateNormal, fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
		}
		return StateLocked, nil
	}
	if count >= int64(t.config.CaptchaThreshold) {
		return StateCaptchaRequired, nil
	}
	return StateNormal, nil
}

// RecordSuccess clears both the counter and any active lock for the key.
func (t *AttemptTracker) RecordSuccess(ctx context.Context, key string) error {
	if err := t.redis.Del(ctx, t.countKey(key), t.lockKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
	}
	return nil
}

// State returns the current escalation state without mutating anything.
func (t *AttemptTracker) State(ctx context.Context, key string) (State, error) {
	locked, err := t.redis.Exists(ctx, t.lockKey(key)).Result()
	if err != nil {
		return StateNormal, fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
	}
	if locked > 0 {
		return StateLocked, nil
	}

	count, err := t.redis.Get(ctx, t.countKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StateNormal, nil
		}
		return StateNormal, fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
	}

	if count >= int64(t.config.CaptchaThreshold) {
		return StateCaptchaRequired, nil
	}
	return StateNormal, nil
}

// RemainingLockout returns how long the key stays locked, zero when it is not.
func (t *AttemptTracker) RemainingLockout(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := t.redis.TTL(ctx, t.lockKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAttemptsUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
