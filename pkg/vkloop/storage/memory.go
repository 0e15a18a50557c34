package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-process Storage. Expiry is lazy: expired keys
// are removed when read.
type MemoryStorage struct {
	mu     sync.Mutex
	data   map[string]memoryEntry
	closed bool
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = never expires
}

// NewMemory creates a new in-process storage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string]memoryEntry),
	}
}

// Set implements Storage.
func (m *MemoryStorage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

// Get implements Storage.
func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrStorageClosed
	}

	entry, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.data, key)
		return "", ErrKeyNotFound
	}
	return entry.value, nil
}

// Delete implements Storage.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStorageClosed
	}

	delete(m.data, key)
	return nil
}

// Close implements Storage.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
