package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/rueidis"
)

// RedisStore implements the core.Store interface using Redis via rueidis.
// Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a new instance of RedisStore with the provided rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// RedisOptions contains configuration for Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// DisableCache turns off client side caching, required for servers
	// without RESP3 client tracking.
	DisableCache bool
}

// NewRedisStoreFromOptions creates a new RedisStore with simplified options.
func NewRedisStoreFromOptions(opts RedisOptions) (*RedisStore, error) {
	return NewRedisStoreFromClientOption(rueidis.ClientOption{
		InitAddress:  []string{opts.Addr},
		Password:     opts.Password,
		SelectDB:     opts.DB,
		DisableCache: opts.DisableCache,
	})
}

// NewRedisStoreFromClientOption creates a new RedisStore with full rueidis client options.
func NewRedisStoreFromClientOption(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Close closes the Redis client connection.
func (r *RedisStore) Close() {
	r.client.Close()
}

// Ping checks that the Redis server is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Set stores value under key with an EX expiry when ttl is positive.
// Sub-second TTLs are rounded up to one second.
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	cmd := r.client.B().Set().Key(key).Value(value).Build()
	if ttl > 0 {
		seconds := int64(math.Ceil(ttl.Seconds()))
		cmd = r.client.B().Set().Key(key).Value(value).ExSeconds(seconds).Build()
	}
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set key in redis: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
// It returns ErrKeyNotFound if the key does not exist or has expired.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	cmd := r.client.B().Get().Key(key).Build()
	result, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get key from redis: %w", err)
	}
	return result, nil
}

// Delete removes key from Redis.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	cmd := r.client.B().Del().Key(key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete key from redis: %w", err)
	}
	return nil
}

// GetDel returns and removes key using GETDEL (Redis 6.2+).
// It returns ErrKeyNotFound if the key does not exist or has expired.
func (r *RedisStore) GetDel(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	cmd := r.client.B().Getdel().Key(key).Build()
	result, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to getdel key from redis: %w", err)
	}
	return result, nil
}
