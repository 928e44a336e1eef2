package store

import (
	"fmt"
	"strings"

	"github.com/go-training/integration-relay/pkg/core"
)

// StoreType represents the type of store backend.
type StoreType string

const (
	// StoreTypeMemory keeps flow state in process memory. Suitable for a single instance.
	StoreTypeMemory StoreType = "memory"
	// StoreTypeRedis keeps flow state in Redis, shared by every relay instance.
	StoreTypeRedis StoreType = "redis"
)

// Config contains configuration for creating a store.
type Config struct {
	// Type specifies the store type (memory or redis).
	Type StoreType
	// Redis contains Redis-specific configuration.
	Redis RedisOptions
}

// Factory creates store instances based on configuration.
type Factory struct {
	config Config
}

// NewFactory creates a new store factory with the provided configuration.
func NewFactory(config Config) *Factory {
	return &Factory{
		config: config,
	}
}

// Create returns a new store for the configured backend.
func (f *Factory) Create() (core.Store, error) {
	switch f.config.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		if f.config.Redis.Addr == "" {
			return nil, fmt.Errorf("redis store requires an address")
		}
		return NewRedisStoreFromOptions(f.config.Redis)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", f.config.Type)
	}
}

// NewStore creates a store directly from configuration.
func NewStore(config Config) (core.Store, error) {
	return NewFactory(config).Create()
}

// ParseStoreType parses a string into a StoreType.
// Returns StoreTypeMemory for unknown inputs.
func ParseStoreType(s string) StoreType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "redis":
		return StoreTypeRedis
	default:
		return StoreTypeMemory
	}
}

// String returns the string representation of a StoreType.
func (t StoreType) String() string {
	return string(t)
}

// IsValid returns true if the StoreType is valid.
func (t StoreType) IsValid() bool {
	return t == StoreTypeMemory || t == StoreTypeRedis
}

// MustCreate creates a store and panics if creation fails.
func MustCreate(config Config) core.Store {
	s, err := NewStore(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create store: %v", err))
	}
	return s
}

// Close releases resources held by s, if any.
func Close(s core.Store) {
	if rs, ok := s.(*RedisStore); ok {
		rs.Close()
	}
}

// MemoryConfig creates a memory store configuration.
func MemoryConfig() Config {
	return Config{Type: StoreTypeMemory}
}

// RedisConfig creates a Redis store configuration with the provided options.
func RedisConfig(redisOpts RedisOptions) Config {
	return Config{
		Type:  StoreTypeRedis,
		Redis: redisOpts,
	}
}
