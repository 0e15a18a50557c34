package vkloop

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration.
var (
	// ErrDispatcherRunning indicates a registration or second Run after
	// the dispatch loop started.
	ErrDispatcherRunning = errors.New("dispatcher already running")

	// ErrNilHandler indicates a registration without a handler function.
	ErrNilHandler = errors.New("handler function is nil")
)

// HandlerPanicError captures panic information from a handler.
// It includes the stack trace for debugging.
type HandlerPanicError struct {
	// Handler is the name of the handler that panicked.
	Handler string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.Handler, e.Value)
}
