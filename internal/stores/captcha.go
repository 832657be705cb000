package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCaptchaNotFound         = errors.New("captcha challenge not found")
	ErrCaptchaRedisUnavailable = errors.New("captcha redis unavailable")
)

// consumeCaptchaLua deletes the challenge while returning its stored answer
// hash, so a challenge is spent on its first validation attempt regardless of
// whether the answer turns out to be correct.
// KEYS[1] = challenge key
var consumeCaptchaLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
redis.call('DEL', KEYS[1])
return data
`)

// CaptchaStore persists captcha answer hashes under the challenge id. Only the
// SHA-256 of the normalized answer is stored; the plaintext code never reaches
// Redis.
type CaptchaStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewCaptchaStore(redisClient redis.UniversalClient, prefix string) *CaptchaStore {
	if prefix == "" {
		prefix = "acp"
	}
	return &CaptchaStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *CaptchaStore) key(challengeID string) string {
	return s.prefix + ":" + challengeID
}

// Save stores the answer hash for a new challenge.
func (s *CaptchaStore) Save(ctx context.Context, challengeID string, answerHash [32]byte, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(challengeID), answerHash[:], ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaRedisUnavailable, err)
	}
	return nil
}

// Consume removes the challenge and returns its answer hash. The caller
// compares hashes in constant time; this store never sees the user's answer.
func (s *CaptchaStore) Consume(ctx context.Context, challengeID string) ([32]byte, error) {
	var answerHash [32]byte

	result, err := consumeCaptchaLua.Run(ctx, s.redis, []string{s.key(challengeID)}).Result()
	if err != nil {
		if err.Error() == "not_found" {
			return answerHash, ErrCaptchaNotFound
		}
		return answerHash, fmt.Errorf("%w: %v", ErrCaptchaRedisUnavailable, err)
	}

	data, ok := result.(string)
	if !ok || len(data) != len(answerHash) {
		return answerHash, fmt.Errorf("%w: unexpected lua result", ErrCaptchaRedisUnavailable)
	}
	copy(answerHash[:], data)
	return answerHash, nil
}
