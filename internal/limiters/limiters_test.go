package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
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

func testCtx() context.Context {
	return context.Background()
}

func testAttemptConfig() AttemptConfig {
	return AttemptConfig{
		CaptchaThreshold: 3,
		LockThreshold:    5,
		Window:           10 * time.Minute,
		LockoutDuration:  5 * time.Minute,
	}
}
