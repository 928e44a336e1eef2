package core

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is absent from the store or its TTL has elapsed.
var ErrKeyNotFound = errors.New("key not found")

// Store is the ephemeral key-value backend shared by every integration flow.
// Values are UTF-8 text; structured values are JSON encoded by the caller.
type Store interface {
	// Set writes value under key. A ttl <= 0 stores the value without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value stored under key or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// GetDel atomically returns and removes the value stored under key.
	// It returns ErrKeyNotFound if the key is absent.
	GetDel(ctx context.Context, key string) (string, error)
}
