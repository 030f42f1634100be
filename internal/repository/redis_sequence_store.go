package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const counterKeyPrefix = "dispatch:counter:"

// RedisSequenceStore is a booking.SequenceStore on Redis INCR.
type RedisSequenceStore struct {
	client *redis.Client
}

// NewRedisSequenceStore connects to Redis and verifies the connection.
func NewRedisSequenceStore(ctx context.Context, addr, password string, db int) (*RedisSequenceStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisSequenceStore{client: client}, nil
}

// NewRedisSequenceStoreFromClient wraps an existing client.
func NewRedisSequenceStoreFromClient(client *redis.Client) *RedisSequenceStore {
	return &RedisSequenceStore{client: client}
}

// Increment atomically bumps the named counter. INCR creates missing keys at 1.
func (s *RedisSequenceStore) Increment(ctx context.Context, name string) (int64, error) {
	seq, err := s.client.Incr(ctx, counterKeyPrefix+name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter %s: %w", name, err)
	}
	return seq, nil
}

// Set overwrites the named counter.
func (s *RedisSequenceStore) Set(ctx context.Context, name string, value int64) error {
	if err := s.client.Set(ctx, counterKeyPrefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set counter %s: %w", name, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (s *RedisSequenceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisSequenceStore) Close() error {
	return s.client.Close()
}
