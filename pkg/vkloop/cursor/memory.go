package cursor

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory cursor store for testing.
// State is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]storedState
	nextSeq int
	closed  bool
}

// storedState holds state with its save time for List() ordering.
type storedState struct {
	state   State
	savedAt time.Time
	seq     int
}

// NewMemoryStore creates a new in-memory cursor store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]storedState),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, name string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.nextSeq++
	seq := m.nextSeq
	if prev, ok := m.data[name]; ok {
		seq = prev.seq
	}
	m.data[name] = storedState{
		state:   st,
		savedAt: time.Now().UTC(),
		seq:     seq,
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, name string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return State{}, ErrStoreClosed
	}

	stored, ok := m.data[name]
	if !ok {
		return State{}, ErrNotFound
	}
	return stored.state, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return m.data[names[i]].seq < m.data[names[j]].seq
	})
	return names, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, name)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of saved sessions. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}
