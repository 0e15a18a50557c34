package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// RateLimitDelay is how long the built-in rate-limit resolver waits
// before re-issuing the call.
const RateLimitDelay = 340 * time.Millisecond

// Request identifies the API call an error envelope came from, so a
// resolver can re-issue it.
type Request struct {
	Method string
	Params Params
}

// Resolver handles one API error code. It may re-issue the request
// through caller and return a replacement response. Returning an error
// makes the original API error terminal.
type Resolver func(ctx context.Context, caller Caller, apiErr *Error, req Request) (json.RawMessage, error)

// ErrorRouter maps API error codes to resolvers. A routed error either
// resolves into a replacement response, is returned raw when the call
// opted into ignoring errors, or comes back as a terminal *Error.
//
// NewErrorRouter pre-registers the rate-limit resolver for
// CodeTooManyRequests.
type ErrorRouter struct {
	resolvers map[int]Resolver
	logger    *slog.Logger
}

// RouterOption configures an ErrorRouter.
type RouterOption func(*ErrorRouter)

// WithRouterLogger sets the logger used for resolver failures.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *ErrorRouter) {
		r.logger = logger
	}
}

// NewErrorRouter creates a router with the rate-limit resolver
// installed for CodeTooManyRequests.
func NewErrorRouter(opts ...RouterOption) *ErrorRouter {
	r := &ErrorRouter{resolvers: make(map[int]Resolver)}
	for _, opt := range opts {
		opt(r)
	}
	r.Register(CodeTooManyRequests, RateLimitResolver(RateLimitDelay))
	return r
}

// Register adds or replaces the resolver for code.
func (r *ErrorRouter) Register(code int, resolver Resolver) {
	r.resolvers[code] = resolver
}

// Route decides the fate of an API error. A registered resolver runs
// regardless of ignore; its failure degrades to the original error.
// Unregistered codes return the raw error envelope when ignore is set,
// the terminal *Error otherwise.
func (r *ErrorRouter) Route(ctx context.Context, caller Caller, apiErr *Error, raw json.RawMessage, req Request, ignore bool) (json.RawMessage, error) {
	resolver, ok := r.resolvers[apiErr.Code]
	if !ok {
		if ignore {
			return raw, nil
		}
		return nil, apiErr
	}

	res, err := r.resolve(ctx, resolver, caller, apiErr, req)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("resolver failed, returning original error",
				slog.Int("code", apiErr.Code),
				slog.String("method", req.Method),
				slog.String("error", err.Error()),
			)
		}
		return nil, apiErr
	}
	return res, nil
}

// resolve executes the resolver with panic isolation.
func (r *ErrorRouter) resolve(ctx context.Context, resolver Resolver, caller Caller, apiErr *Error, req Request) (res json.RawMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("resolver panicked",
					slog.Int("code", apiErr.Code),
					slog.String("stack", string(debug.Stack())),
				)
			}
			err = fmt.Errorf("resolver panic: %v", rec)
		}
	}()
	return resolver(ctx, caller, apiErr, req)
}

// RateLimitResolver returns the built-in rate-limit resolver: wait
// delay, then re-issue the original call exactly once.
func RateLimitResolver(delay time.Duration) Resolver {
	return func(ctx context.Context, caller Caller, _ *Error, req Request) (json.RawMessage, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		return caller.Call(ctx, req.Method, req.Params)
	}
}
