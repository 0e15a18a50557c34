// Package storage provides the shared key-value store handlers use to
// keep state between events.
package storage

import (
	"context"
	"errors"
	"time"
)

// Storage is the handler-facing key-value store. A zero TTL means the
// key never expires. Implementations must be safe for concurrent use.
type Storage interface {
	// Set stores a value under key with an optional TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves the value for key.
	// Returns ErrKeyNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key. Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Close releases any resources (connections).
	Close() error
}

// Sentinel errors for storage operations.
var (
	// ErrKeyNotFound indicates a key is missing or expired.
	ErrKeyNotFound = errors.New("storage key not found")

	// ErrStorageClosed indicates the storage has been closed.
	ErrStorageClosed = errors.New("storage closed")
)
