package durations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teemow/meetslots/internal/slots"
)

// DefaultRedisKeyPrefix is prepended to the hash key.
const DefaultRedisKeyPrefix = "meetslots:"

const redisHashKey = "slot_durations"

// RedisConfig holds the connection settings for the Redis backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps durations in a single Redis hash with one field per day.
type RedisStore struct {
	client         redis.UniversalClient
	key            string
	defaultMinutes int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, defaultMinutes int) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required for the redis duration store")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, defaultMinutes), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, defaultMinutes int) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		client:         client,
		key:            keyPrefix + redisHashKey,
		defaultMinutes: defaultMinutes,
	}
}

// Key returns the Redis hash key holding the durations.
func (s *RedisStore) Key() string {
	return s.key
}

// Load returns the stored duration for day or the default.
func (s *RedisStore) Load(ctx context.Context, day slots.Date) (int, error) {
	minutes, err := s.client.HGet(ctx, s.key, day.String()).Int()
	if errors.Is(err, redis.Nil) {
		return s.defaultMinutes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load slot duration for %s: %w", day, err)
	}
	if minutes <= 0 {
		return s.defaultMinutes, nil
	}
	return minutes, nil
}

// Save stores minutes for day.
func (s *RedisStore) Save(ctx context.Context, day slots.Date, minutes int) error {
	if err := validateMinutes(minutes); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.key, day.String(), minutes).Err(); err != nil {
		return fmt.Errorf("failed to save slot duration for %s: %w", day, err)
	}
	return nil
}

// All returns every stored duration. Fields that are not integers are skipped.
func (s *RedisStore) All(ctx context.Context) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list slot durations: %w", err)
	}
	all := make(map[string]int, len(raw))
	for day, value := range raw {
		minutes, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		all[day] = minutes
	}
	return all, nil
}

// Ping checks that Redis answers. The server uses it as a readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
