package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCooldownUnavailable indicates the cooldown backend is unreachable.
var ErrCooldownUnavailable = errors.New("cooldown backend unavailable")

// Cooldown enforces a minimum interval between successful occurrences of an
// operation per key. Unlike AttemptTracker it counts nothing; a key is either
// inside its cooldown or free.
type Cooldown struct {
	redis     redis.UniversalClient
	namespace string
	interval  time.Duration
}

func NewCooldown(redisClient redis.UniversalClient, namespace string, interval time.Duration) *Cooldown {
	return &Cooldown{
		redis:     redisClient,
		namespace: namespace,
		interval:  interval,
	}
}

func (c *Cooldown) key(key string) string {
	return "acd:" + c.namespace + ":" + key
}

// Start arms the cooldown for the key. Called after the operation succeeds.
func (c *Cooldown) Start(ctx context.Context, key string) error {
	if c.interval <= 0 {
		return nil
	}
	if err := c.redis.Set(ctx, c.key(key), "1", c.interval).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCooldownUnavailable, err)
	}
	return nil
}

// Remaining returns how long the key stays in cooldown, zero when it is free.
func (c *Cooldown) Remaining(ctx context.Context, key string) (time.Duration, error) {
	if c.interval <= 0 {
		return 0, nil
	}
	ttl, err := c.redis.TTL(ctx, c.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCooldownUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
