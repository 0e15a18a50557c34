// Package cursor provides persistent resume state for long-poll sessions.
package cursor

import (
	"context"
	"errors"
)

// State is the resume point of one long-poll session: the assigned
// server, its access key, and the event cursor.
type State struct {
	Server string `json:"server"`
	Key    string `json:"key"`
	TS     string `json:"ts"`
}

// Store persists session state so polling resumes where it stopped.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the state under a session name.
	// Overwrites if state for the name already exists.
	Save(ctx context.Context, name string, st State) error

	// Load retrieves the state of a session.
	// Returns ErrNotFound if the session was never saved.
	Load(ctx context.Context, name string) (State, error)

	// List returns all saved session names, oldest save first.
	// Returns empty slice (not error) when nothing is saved.
	List(ctx context.Context) ([]string, error)

	// Delete removes a session's state.
	// Returns nil if the session doesn't exist.
	Delete(ctx context.Context, name string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for cursor operations.
var (
	// ErrNotFound indicates a session has no saved state.
	ErrNotFound = errors.New("cursor not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("cursor store closed")
)
