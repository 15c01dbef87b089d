package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyFmt = "session:%s"
	lockoutKeyFmt = "lockout:%s"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and pings it. The caller falls back to the
// in-memory stores when this fails.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisSessionStore keeps authenticated session records as JSON with a TTL
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a session store over client
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Save(ctx context.Context, sid string, record models.SessionRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, fmt.Sprintf(sessionKeyFmt, sid), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, sid string) (*models.SessionRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(sessionKeyFmt, sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var record models.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &record, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, fmt.Sprintf(sessionKeyFmt, sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// RedisLockoutStore keeps lockoutUntil per client; keys expire with the lockout
type RedisLockoutStore struct {
	client *redis.Client
}

// NewRedisLockoutStore creates a lockout store over client
func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func (s *RedisLockoutStore) GetLockout(ctx context.Context, sid string) (*time.Time, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(lockoutKeyFmt, sid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load lockout: %w", err)
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt lockout value %q: %w", raw, err)
	}
	until := time.Unix(0, nanos).UTC()
	return &until, nil
}

func (s *RedisLockoutStore) SetLockout(ctx context.Context, sid string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return s.ClearLockout(ctx, sid)
	}
	// keep the key slightly past expiry so a reload right at zero still sees it
	err := s.client.Set(ctx, fmt.Sprintf(lockoutKeyFmt, sid), strconv.FormatInt(until.UnixNano(), 10), ttl+time.Minute).Err()
	if err != nil {
		return fmt.Errorf("failed to save lockout: %w", err)
	}
	return nil
}

func (s *RedisLockoutStore) ClearLockout(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, fmt.Sprintf(lockoutKeyFmt, sid)).Err(); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}
