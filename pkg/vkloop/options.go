package vkloop

import (
	"log/slog"

	"github.com/mkorobkov/vkloop/pkg/vkloop/api"
	"github.com/mkorobkov/vkloop/pkg/vkloop/observability"
	"github.com/mkorobkov/vkloop/pkg/vkloop/rules"
	"github.com/mkorobkov/vkloop/pkg/vkloop/storage"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger enables structured logging for the dispatch loop and
// handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the metrics recorder for handler executions.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTracing enables a span per dispatched event and per handler
// execution.
func WithTracing() Option {
	return func(d *Dispatcher) {
		d.tracing = true
		d.spans = observability.NewSpanManager()
	}
}

// WithCaller seeds the handler data with the API client under the
// "api" key, so handlers can answer events without global state.
func WithCaller(c api.Caller) Option {
	return func(d *Dispatcher) {
		d.seedData[DataKeyAPI] = c
	}
}

// WithStorage seeds the handler data with a storage backend under the
// "storage" key.
func WithStorage(s storage.Storage) Option {
	return func(d *Dispatcher) {
		d.seedData[DataKeyStorage] = s
	}
}

// WithSequentialDispatch processes each batch in order on the polling
// goroutine instead of fanning out. Slower, but events cannot
// interleave.
func WithSequentialDispatch() Option {
	return func(d *Dispatcher) {
		d.sequential = true
	}
}

// WithFactory replaces the rule factory used by RegisterNamed and
// blueprints.
func WithFactory(f *rules.Factory) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.factory = f
		}
	}
}
