package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-training/integration-relay/pkg/core"
)

var (
	// ErrKeyNotFound is returned when a key is absent or expired.
	ErrKeyNotFound = core.ErrKeyNotFound
	// ErrEmptyKey is returned when the key string is empty.
	ErrEmptyKey = errors.New("key cannot be empty")
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the time source used for TTL bookkeeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) {
		m.now = now
	}
}

// MemoryStore implements the core.Store interface using an in-memory map.
// Expired entries are dropped lazily on access and swept on every Set.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a new instance of MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores value under key, expiring it after ttl when ttl is positive.
func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Get returns the value stored under key.
// It returns ErrKeyNotFound if the key does not exist or has expired.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	return entry.value, nil
}

// Delete removes key from memory.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// GetDel returns the value stored under key and removes it in one step.
func (m *MemoryStore) GetDel(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	delete(m.entries, key)
	return entry.value, nil
}

// TTL returns the remaining lifetime of key, zero for keys without expiry.
// It returns ErrKeyNotFound if the key does not exist or has expired.
func (m *MemoryStore) TTL(key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key)
	if !ok {
		return 0, ErrKeyNotFound
	}
	if entry.expiresAt.IsZero() {
		return 0, nil
	}
	return entry.expiresAt.Sub(m.now()), nil
}

// Len returns the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(m.now())
	return len(m.entries)
}

// lookup must be called with mu held.
func (m *MemoryStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// sweep must be called with mu held.
func (m *MemoryStore) sweep(now time.Time) {
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}
