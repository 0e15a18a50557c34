package vkloop

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
	"github.com/mkorobkov/vkloop/pkg/vkloop/retry"
	"github.com/mkorobkov/vkloop/pkg/vkloop/rules"
)

// HandlerFunc processes one decoded event. The data map carries the
// dispatch ID, anything seeded through dispatcher options ("api",
// "storage"), and enrichment from middlewares and rules.
type HandlerFunc func(ctx context.Context, ev event.Event, data event.Data) error

// registration binds an event type to a handler with its rule chain
// and execution policy.
type registration struct {
	eventType event.Type
	name      string
	fn        HandlerFunc
	rules     []rules.Rule
	timeout   time.Duration
	retry     *retry.Config
}

// HandlerOption configures a handler registration.
type HandlerOption func(*registration)

// WithRules attaches acceptance rules, evaluated in order as a
// short-circuiting AND.
func WithRules(rs ...rules.Rule) HandlerOption {
	return func(r *registration) {
		r.rules = append(r.rules, rs...)
	}
}

// WithName overrides the handler name used in logs, metrics and spans.
// The default is handler-N by registration order.
func WithName(name string) HandlerOption {
	return func(r *registration) {
		if name != "" {
			r.name = name
		}
	}
}

// WithTimeout bounds each handler execution. Zero means no limit.
func WithTimeout(d time.Duration) HandlerOption {
	return func(r *registration) {
		r.timeout = d
	}
}

// WithRetry re-runs the handler on failure per cfg. Only errors the
// config considers retryable are repeated; panics are not.
func WithRetry(cfg retry.Config) HandlerOption {
	return func(r *registration) {
		r.retry = &cfg
	}
}

// run executes the handler with its timeout, retry policy and panic
// recovery applied.
func (r *registration) run(ctx context.Context, ev event.Event, data event.Data) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if r.retry == nil {
		return r.invoke(ctx, ev, data)
	}

	res := retry.Do(ctx, *r.retry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.invoke(ctx, ev, data)
	})
	return res.Err
}

// invoke calls the handler function, converting panics into
// *HandlerPanicError.
func (r *registration) invoke(ctx context.Context, ev event.Event, data event.Data) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &HandlerPanicError{
				Handler: r.name,
				Value:   v,
				Stack:   string(debug.Stack()),
			}
		}
	}()
	return r.fn(ctx, ev, data)
}
