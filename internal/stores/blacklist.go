package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrBlacklistRedisUnavailable = errors.New("blacklist redis unavailable")

// BlacklistStore holds the jti of revoked access tokens until the token would
// have expired on its own. Entries self-expire, so the set never grows beyond
// the population of still-valid revoked tokens.
type BlacklistStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewBlacklistStore(redisClient redis.UniversalClient, prefix string) *BlacklistStore {
	if prefix == "" {
		prefix = "abl"
	}
	return &BlacklistStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *BlacklistStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Add blacklists a token id for the given remaining lifetime. A non-positive
// TTL means the token is already expired and nothing needs to be stored.
func (s *BlacklistStore) Add(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBlacklistRedisUnavailable, err)
	}
	return nil
}

// Contains reports whether the token id has been blacklisted.
func (s *BlacklistStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBlacklistRedisUnavailable, err)
	}
	return n > 0, nil
}
