package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRefreshNotFound         = errors.New("refresh record not found")
	ErrRefreshReused           = errors.New("refresh record already rotated")
	ErrRefreshRevoked          = errors.New("refresh record revoked")
	ErrRefreshRedisUnavailable = errors.New("refresh redis unavailable")
)

// RefreshRecord is the server-side state of one refresh token. FamilyID links
// every descendant of an initial login together so that a detected reuse can
// revoke the whole chain at once.
type RefreshRecord struct {
	ID         string `json:"id"`
	UserID     string `json:"uid"`
	FamilyID   string `json:"fam"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
	Revoked    bool   `json:"rvk"`
	ReplacedBy string `json:"rby,omitempty"`
}

// rotateRefreshLua atomically rotates one refresh record.
// KEYS[1] = presented record key
// KEYS[2] = successor record key
// KEYS[3] = family set key
// ARGV[1] = successor record id
// ARGV[2] = successor record JSON
// ARGV[3] = successor TTL in milliseconds
// ARGV[4] = current unix timestamp
//
// Returns the pre-rotation record JSON, or one of the error strings
// "not_found", "expired", "revoked", "reused". The presented record is
// revoked in place with its TTL preserved, never deleted, so a second
// presentation of the same token is distinguishable from an unknown one.
var rotateRefreshLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local rec = cjson.decode(data)
local nowUnix = tonumber(ARGV[4])

if nowUnix > rec.exp then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if rec.rvk then
  if rec.rby and rec.rby ~= '' then
    return {err='reused'}
  end
  return {err='revoked'}
end

rec.rvk = true
rec.rby = ARGV[1]

local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttlMs)
redis.call('SET', KEYS[2], ARGV[2], 'PX', tonumber(ARGV[3]))
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('PEXPIRE', KEYS[3], tonumber(ARGV[3]))

return data
`)

// revokeRefreshLua marks one record revoked, preserving its TTL.
// KEYS[1] = record key
var revokeRefreshLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local rec = cjson.decode(data)
if rec.rvk then
  return 'OK'
end

rec.rvk = true

local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
  return 'OK'
end

redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttlMs)
return 'OK'
`)

// RefreshStore persists refresh-token records in Redis. Record keys carry the
// full token TTL; the per-family and per-user index sets are refreshed to the
// same horizon on every insert.
type RefreshStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRefreshStore(redisClient redis.UniversalClient, prefix string) *RefreshStore {
	if prefix == "" {
		prefix = "art"
	}
	return &RefreshStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RefreshStore) recordKey(id string) string {
	return s.prefix + ":" + id
}

func (s *RefreshStore) familyKey(familyID string) string {
	return s.prefix + "f:" + familyID
}

func (s *RefreshStore) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

// Save stores a fresh record and indexes it under its family and user sets.
func (s *RefreshStore) Save(ctx context.Context, record *RefreshRecord, ttl time.Duration) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.recordKey(record.ID), encoded, ttl)
	pipe.SAdd(ctx, s.familyKey(record.FamilyID), record.ID)
	pipe.PExpire(ctx, s.familyKey(record.FamilyID), ttl)
	pipe.SAdd(ctx, s.userKey(record.UserID), record.ID)
	pipe.PExpire(ctx, s.userKey(record.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return nil
}

// Get returns the record for id, expired records included as long as Redis
// still holds them. Callers needing liveness must check ExpiresAt and Revoked.
func (s *RefreshStore) Get(ctx context.Context, id string) (*RefreshRecord, error) {
	data, err := s.redis.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	var record RefreshRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return &record, nil
}

// Rotate atomically revokes the record for oldID and inserts successor in its
// place. It returns the pre-rotation record. ErrRefreshReused means oldID was
// already rotated once, the signal for family-wide revocation.
func (s *RefreshStore) Rotate(ctx context.Context, oldID string, successor *RefreshRecord, ttl time.Duration) (*RefreshRecord, error) {
	encoded, err := json.Marshal(successor)
	if err != nil {
		return nil, err
	}

	result, err := rotateRefreshLua.Run(ctx, s.redis,
		[]string{s.recordKey(oldID), s.recordKey(successor.ID), s.familyKey(successor.FamilyID)},
		successor.ID,
		string(encoded),
		ttl.Milliseconds(),
		time.Now().Unix(),
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found", "expired":
			return nil, ErrRefreshNotFound
		case "reused":
			return nil, ErrRefreshReused
		case "revoked":
			return nil, ErrRefreshRevoked
		default:
			return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrRefreshRedisUnavailable)
	}

	var previous RefreshRecord
	if decErr := json.Unmarshal([]byte(data), &previous); decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, decErr)
	}

	// Index the successor under its user set; the rotate script already
	// handled the record and family set.
	pipe := s.redis.TxPipeline()
	pipe.SAdd(ctx, s.userKey(successor.UserID), successor.ID)
	pipe.PExpire(ctx, s.userKey(successor.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	return &previous, nil
}

// Revoke marks a single record revoked. Revoking an unknown record is not an
// error; logout must be idempotent.
func (s *RefreshStore) Revoke(ctx context.Context, id string) error {
	err := revokeRefreshLua.Run(ctx, s.redis, []string{s.recordKey(id)}).Err()
	if err != nil {
		if err.Error() == "not_found" {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}
	return nil
}

// RevokeFamily revokes every record descended from one login.
func (s *RefreshStore) RevokeFamily(ctx context.Context, familyID string) error {
	return s.revokeSet(ctx, s.familyKey(familyID))
}

// RevokeAllForUser revokes every live refresh record the user holds, across
// all families.
func (s *RefreshStore) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.revokeSet(ctx, s.userKey(userID))
}

func (s *RefreshStore) revokeSet(ctx context.Context, setKey string) error {
	ids, err := s.redis.SMembers(ctx, setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRefreshRedisUnavailable, err)
	}

	for _, id := range ids {
		if err := s.Revoke(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
