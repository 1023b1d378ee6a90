// Package cache implements the Redis-backed result cache for tool invocations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
)

// Entry is a cached tool result together with the ID of its persisted
// history record.
type Entry struct {
	Payload json.RawMessage `json:"payload"`
	SavedID string          `json:"saved_id"`
}

// Store caches tool results in Redis, keyed per user so one user's results
// are never served to another. An in-flight marker lets concurrent misses
// for the same key elect a single invoker.
type Store struct {
	client       *redis.Client
	ttl          time.Duration
	inFlightTTL  time.Duration
	pollInterval time.Duration
}

// NewStore creates a cache store with the given entry and in-flight marker TTLs.
func NewStore(client *redis.Client, ttl, inFlightTTL, pollInterval time.Duration) *Store {
	return &Store{
		client:       client,
		ttl:          ttl,
		inFlightTTL:  inFlightTTL,
		pollInterval: pollInterval,
	}
}

// Key builds the cache key for a tool invocation. The user ID is part of the
// key so identical inputs from different users miss each other's entries.
func Key(kind domain.ToolKind, userID, input string) string {
	return fmt.Sprintf("mcp:%s:%s:%s", kind, userID, input)
}

// Get returns the cached entry for the key, or (nil, nil) on a miss.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// Set stores the entry under the key with the configured TTL.
func (s *Store) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set entry: %w", err)
	}

	return nil
}

func inFlightKey(key string) string {
	return key + ":inflight"
}

// AcquireInFlight tries to claim the invocation slot for the key. It returns
// true when the caller is elected to perform the external call. The marker
// expires on its own so a crashed invoker cannot block the key forever.
func (s *Store) AcquireInFlight(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, inFlightKey(key), "1", s.inFlightTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx in-flight marker: %w", err)
	}
	return ok, nil
}

// ReleaseInFlight drops the invocation marker for the key.
func (s *Store) ReleaseInFlight(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, inFlightKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del in-flight marker: %w", err)
	}
	return nil
}

// WaitForEntry polls the cache until the elected invoker publishes an entry,
// the in-flight marker lapses, or the context ends. It returns (nil, nil)
// when the marker is gone without an entry appearing; the caller then falls
// through to its own invocation.
func (s *Store) WaitForEntry(ctx context.Context, key string) (*Entry, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		entry, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}

		held, err := s.client.Exists(ctx, inFlightKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists in-flight marker: %w", err)
		}
		if held == 0 {
			return nil, nil
		}
	}
}
