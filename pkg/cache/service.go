package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Error definitions
var (
	ErrCacheMiss = errors.New("cache miss")
	ErrConflict  = errors.New("cache revision conflict")
)

// Service is a JSON-valued key/value cache
type Service interface {
	// Generic cache operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Exists(ctx context.Context, key string) bool

	// Sliding expiry
	Touch(ctx context.Context, key string, ttl time.Duration) error

	// Optimistic writes
	CompareAndSet(ctx context.Context, key, field string, expected uint64, value interface{}, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error
}

type service struct {
	client redis.UniversalClient
}

func NewService(client redis.UniversalClient) Service {
	return &service{client: client}
}

func (s *service) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

func (s *service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// DeletePattern removes every key matching pattern and reports how many
// were deleted. It walks the keyspace with SCAN so Redis is never blocked.
func (s *service) DeletePattern(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()

	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("cache delete pattern error: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan error: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	return deleted, nil
}

func (s *service) Exists(ctx context.Context, key string) bool {
	result, err := s.client.Exists(ctx, key).Result()
	return err == nil && result > 0
}

func (s *service) Touch(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("cache expire error: %w", err)
	}
	if !ok {
		return ErrCacheMiss
	}
	return nil
}

// Lua script for a revision-checked write - the read and the write happen
// atomically on the server
const luaCompareAndSet = `
-- KEYS[1] = key
-- ARGV[1] = expected revision, 0 when the key must not exist yet
-- ARGV[2] = new JSON value
-- ARGV[3] = ttl in milliseconds
-- ARGV[4] = name of the revision field in the stored JSON

local expected = tonumber(ARGV[1])
local current = redis.call("GET", KEYS[1])

if not current then
    if expected ~= 0 then
        return 0
    end
else
    if expected == 0 then
        return -1
    end
    local ok, doc = pcall(cjson.decode, current)
    if not ok or tonumber(doc[ARGV[4]]) ~= expected then
        return -1
    end
end

redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

var compareAndSetScript = redis.NewScript(luaCompareAndSet)

// CompareAndSet stores value only while the revision held in field of the
// stored JSON equals expected. An expected revision of 0 creates the key.
// It returns ErrCacheMiss when the key is gone and ErrConflict when another
// writer got there first.
func (s *service) CompareAndSet(ctx context.Context, key, field string, expected uint64, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache compare-and-set error: ttl must be positive")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	res, err := compareAndSetScript.Run(ctx, s.client, []string{key}, expected, data, ttl.Milliseconds(), field).Int()
	if err != nil {
		return fmt.Errorf("cache compare-and-set error: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return ErrCacheMiss
	default:
		return ErrConflict
	}
}

func (s *service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
