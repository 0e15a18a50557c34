package vkloop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
)

// Outcome tells the dispatcher whether to keep processing an event
// after a pre-process hook.
type Outcome int

const (
	// Continue hands the event to the next hook and then to routing.
	Continue Outcome = iota
	// Skip drops the event: no further pre hooks run and no handler is
	// considered. Post hooks still run.
	Skip
)

// HandlerResult describes a handler execution for post-process hooks.
type HandlerResult struct {
	// Handler is the name of the handler that ran.
	Handler string
	// Err is the handler's error, nil on success.
	Err error
	// Duration is the handler execution time.
	Duration time.Duration
}

// Middleware observes and steers event processing.
//
// PreProcess runs before routing and may enrich data or return Skip to
// drop the event. PostProcess always runs afterwards in registration
// order; res is nil when no handler ran (skipped, no match, or every
// rule chain rejected). Hook errors and panics are logged and
// isolated: they never stop the dispatch loop, the other hooks, or the
// event itself.
type Middleware interface {
	PreProcess(ctx context.Context, ev event.Event, data event.Data) (Outcome, error)
	PostProcess(ctx context.Context, ev event.Event, data event.Data, res *HandlerResult) error
}

// BaseMiddleware is a no-op Middleware for embedding, so middlewares
// implement only the hooks they care about.
type BaseMiddleware struct{}

// Compile-time interface check.
var _ Middleware = BaseMiddleware{}

// PreProcess implements Middleware.
func (BaseMiddleware) PreProcess(context.Context, event.Event, event.Data) (Outcome, error) {
	return Continue, nil
}

// PostProcess implements Middleware.
func (BaseMiddleware) PostProcess(context.Context, event.Event, event.Data, *HandlerResult) error {
	return nil
}

// runPre executes pre-process hooks in order. The first Skip stops the
// chain. A failing hook is treated as Continue so one broken
// middleware cannot silence the whole event stream.
func (d *Dispatcher) runPre(ctx context.Context, logger *slog.Logger, ev event.Event, data event.Data) Outcome {
	for _, mw := range d.middlewares {
		outcome, err := preSafe(ctx, mw, ev, data)
		if err != nil {
			if logger != nil {
				logger.Warn("pre-process hook failed", slog.String("error", err.Error()))
			}
			continue
		}
		if outcome == Skip {
			if logger != nil {
				logger.Debug("event skipped by middleware")
			}
			return Skip
		}
	}
	return Continue
}

// runPost executes every post-process hook in registration order,
// regardless of whether a handler ran.
func (d *Dispatcher) runPost(ctx context.Context, logger *slog.Logger, ev event.Event, data event.Data, res *HandlerResult) {
	for _, mw := range d.middlewares {
		if err := postSafe(ctx, mw, ev, data, res); err != nil {
			if logger != nil {
				logger.Warn("post-process hook failed", slog.String("error", err.Error()))
			}
		}
	}
}

func preSafe(ctx context.Context, mw Middleware, ev event.Event, data event.Data) (outcome Outcome, err error) {
	defer func() {
		if v := recover(); v != nil {
			outcome = Continue
			err = fmt.Errorf("pre-process panic: %v", v)
		}
	}()
	return mw.PreProcess(ctx, ev, data)
}

func postSafe(ctx context.Context, mw Middleware, ev event.Event, data event.Data, res *HandlerResult) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("post-process panic: %v", v)
		}
	}()
	return mw.PostProcess(ctx, ev, data, res)
}
