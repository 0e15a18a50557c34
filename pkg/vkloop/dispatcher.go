package vkloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkorobkov/vkloop/pkg/vkloop/event"
	"github.com/mkorobkov/vkloop/pkg/vkloop/longpoll"
	"github.com/mkorobkov/vkloop/pkg/vkloop/observability"
	"github.com/mkorobkov/vkloop/pkg/vkloop/rules"
)

// Poller produces raw update batches for the dispatcher.
// It is implemented by *longpoll.Session.
type Poller interface {
	// Acquire obtains poll credentials. Called once when Run starts.
	Acquire(ctx context.Context) error

	// Poll blocks for the next update batch. An empty batch with a nil
	// error means "nothing yet, poll again"; an error stops the loop.
	Poll(ctx context.Context) ([]event.Update, error)
}

// Compile-time interface check.
var _ Poller = (*longpoll.Session)(nil)

// Dispatcher routes decoded events to registered handlers.
//
// Registration happens before Run: handlers bind to an event type with
// an optional rule chain, middlewares wrap every event. Once Run
// starts, further registration fails with ErrDispatcherRunning.
type Dispatcher struct {
	poller  Poller
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	tracing bool

	factory    *rules.Factory
	seedData   map[string]any
	sequential bool

	mu          sync.Mutex
	running     bool
	handlers    []*registration
	middlewares []Middleware

	wg sync.WaitGroup
}

// New creates a dispatcher that feeds from poller.
func New(poller Poller, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		poller:   poller,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		factory:  rules.NewFactory(),
		seedData: map[string]any{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register binds fn to events of type t. Registrations are matched in
// order; the first one whose rules accept runs the handler and ends
// the search, even when the handler fails.
func (d *Dispatcher) Register(t event.Type, fn HandlerFunc, opts ...HandlerOption) error {
	if fn == nil {
		return ErrNilHandler
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDispatcherRunning
	}

	reg := &registration{
		eventType: t,
		fn:        fn,
		name:      fmt.Sprintf("handler-%d", len(d.handlers)),
	}
	for _, opt := range opts {
		opt(reg)
	}
	d.handlers = append(d.handlers, reg)
	return nil
}

// RegisterMessageHandler binds fn to new messages behind the given
// rules.
func (d *Dispatcher) RegisterMessageHandler(fn HandlerFunc, rs ...rules.Rule) error {
	return d.Register(event.TypeMessageNew, fn, WithRules(rs...))
}

// RegisterNamed binds fn to events of type t behind factory-built
// rules, e.g. {"commands": "start"}. Unknown names and bad option
// types fail here, at registration time.
func (d *Dispatcher) RegisterNamed(t event.Type, fn HandlerFunc, named map[string]any, opts ...HandlerOption) error {
	rs, err := d.factory.BuildAll(named)
	if err != nil {
		return err
	}
	return d.Register(t, fn, append([]HandlerOption{WithRules(rs...)}, opts...)...)
}

// RegisterMiddleware appends mw to the middleware chain. Hooks run in
// registration order.
func (d *Dispatcher) RegisterMiddleware(mw Middleware) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDispatcherRunning
	}
	d.middlewares = append(d.middlewares, mw)
	return nil
}

// Run acquires the poll session and dispatches events until ctx is
// cancelled or the poller fails terminally. Updates within a batch are
// dispatched concurrently unless sequential dispatch is configured.
// On cancellation Run waits for in-flight handlers before returning
// ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrDispatcherRunning
	}
	d.running = true
	d.mu.Unlock()

	if err := d.poller.Acquire(ctx); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return err
	}

	if d.logger != nil {
		d.logger.Info("dispatch loop started")
	}
	defer d.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := d.poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		for _, u := range updates {
			if d.sequential {
				d.processUpdate(ctx, u)
				continue
			}
			d.wg.Add(1)
			go func(u event.Update) {
				defer d.wg.Done()
				d.processUpdate(ctx, u)
			}(u)
		}
	}
}

// processUpdate decodes one raw update and pushes it through the
// middleware chain and handler routing.
func (d *Dispatcher) processUpdate(ctx context.Context, u event.Update) {
	ev := event.Decode(u)
	dispatchID := uuid.NewString()

	data := event.Data{DataKeyDispatchID: dispatchID}
	for k, v := range d.seedData {
		data[k] = v
	}

	logger := observability.EnrichLogger(d.logger, dispatchID, ev.EventType().String())

	var span trace.Span
	if d.tracing {
		ctx, span = d.spans.StartDispatchSpan(ctx, ev.EventType().String(), dispatchID)
	}

	var res *HandlerResult
	if d.runPre(ctx, logger, ev, data) == Continue {
		res = d.route(ctx, logger, ev, data)
	}
	d.runPost(ctx, logger, ev, data, res)

	if d.tracing {
		var err error
		if res != nil {
			err = res.Err
		}
		d.spans.EndSpanWithError(span, err)
	}
}

// route finds the first registration whose type and rules accept ev
// and executes it. A rule error rejects only that registration; the
// search continues with the next one.
func (d *Dispatcher) route(ctx context.Context, logger *slog.Logger, ev event.Event, data event.Data) *HandlerResult {
	t := ev.EventType()
	for _, reg := range d.handlers {
		if reg.eventType != t {
			continue
		}

		ok, err := rules.EvaluateAll(ctx, reg.rules, ev, data)
		if err != nil {
			if logger != nil {
				logger.Warn("rule check failed",
					slog.String("handler", reg.name),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		if !ok {
			continue
		}

		return d.execute(ctx, logger, reg, ev, data)
	}

	observability.LogEventDropped(logger, t.String())
	return nil
}

// execute runs one handler with observability around it.
func (d *Dispatcher) execute(ctx context.Context, logger *slog.Logger, reg *registration, ev event.Event, data event.Data) *HandlerResult {
	observability.LogHandlerStart(logger, reg.name)

	hctx := ctx
	var span trace.Span
	if d.tracing {
		hctx, span = d.spans.StartHandlerSpan(ctx, reg.name)
	}

	start := time.Now()
	err := reg.run(hctx, ev, data)
	duration := time.Since(start)

	if d.tracing {
		d.spans.EndSpanWithError(span, err)
	}
	d.metrics.RecordHandler(ctx, reg.name, duration, err)

	if err != nil {
		observability.LogHandlerError(logger, reg.name, err)
	} else {
		observability.LogHandlerComplete(logger, reg.name, float64(duration.Milliseconds()))
	}

	return &HandlerResult{Handler: reg.name, Err: err, Duration: duration}
}
