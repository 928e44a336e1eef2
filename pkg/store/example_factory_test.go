package store_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-training/integration-relay/pkg/core"
	"github.com/go-training/integration-relay/pkg/store"
)

// Example demonstrates single-delivery reads through the store factory.
func Example() {
	s, err := store.NewStore(store.MemoryConfig())
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := s.Set(ctx, "hubspot_credentials:org-1:user-1", `{"access_token":"tok"}`, 10*time.Minute); err != nil {
		log.Fatal(err)
	}

	value, err := s.GetDel(ctx, "hubspot_credentials:org-1:user-1")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(value)

	_, err = s.GetDel(ctx, "hubspot_credentials:org-1:user-1")
	fmt.Println(errors.Is(err, core.ErrKeyNotFound))
	// Output:
	// {"access_token":"tok"}
	// true
}

// Example_parseStoreType demonstrates mapping a command-line flag to a store type.
func Example_parseStoreType() {
	fmt.Println(store.ParseStoreType("Redis"))
	fmt.Println(store.ParseStoreType("unknown"))
	// Output:
	// redis
	// memory
}

// Example_withClock demonstrates TTL expiry with an injected clock.
func Example_withClock() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore(store.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	_ = s.Set(ctx, "notion_state:org-1:user-1", "state", 600*time.Second)

	now = now.Add(601 * time.Second)
	_, err := s.Get(ctx, "notion_state:org-1:user-1")
	fmt.Println(err)
	// Output: key not found
}
