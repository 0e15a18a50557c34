package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Poll outcomes recorded with each cycle.
const (
	PollOutcomeOK        = "ok"
	PollOutcomeStale     = "stale_history"
	PollOutcomeRotated   = "key_rotated"
	PollOutcomeMalformed = "malformed"
	PollOutcomeTransport = "transport_error"
)

// MetricsRecorder records vkloop metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPoll records one poll cycle with its outcome and batch size.
	RecordPoll(ctx context.Context, outcome string, duration time.Duration, updates int)

	// RecordHandler records a handler execution with its duration and error status.
	RecordHandler(ctx context.Context, handler string, duration time.Duration, err error)

	// RecordAPICall records an API method call with its duration and error status.
	RecordAPICall(ctx context.Context, method string, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	pollCycles        metric.Int64Counter
	pollLatency       metric.Float64Histogram
	pollUpdates       metric.Int64Counter
	handlerExecutions metric.Int64Counter
	handlerLatency    metric.Float64Histogram
	handlerErrors     metric.Int64Counter
	apiCalls          metric.Int64Counter
	apiLatency        metric.Float64Histogram
	apiErrors         metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("vkloop")

	pollCycles, err := meter.Int64Counter("vkloop.poll.cycles",
		metric.WithDescription("Number of long-poll cycles"),
	)
	if err != nil {
		return nil, err
	}

	pollLatency, err := meter.Float64Histogram("vkloop.poll.latency_ms",
		metric.WithDescription("Long-poll cycle latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	pollUpdates, err := meter.Int64Counter("vkloop.poll.updates",
		metric.WithDescription("Number of raw updates received"),
	)
	if err != nil {
		return nil, err
	}

	handlerExecutions, err := meter.Int64Counter("vkloop.handler.executions",
		metric.WithDescription("Number of handler executions"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("vkloop.handler.latency_ms",
		metric.WithDescription("Handler execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("vkloop.handler.errors",
		metric.WithDescription("Number of handler execution errors"),
	)
	if err != nil {
		return nil, err
	}

	apiCalls, err := meter.Int64Counter("vkloop.api.calls",
		metric.WithDescription("Number of API method calls"),
	)
	if err != nil {
		return nil, err
	}

	apiLatency, err := meter.Float64Histogram("vkloop.api.latency_ms",
		metric.WithDescription("API call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	apiErrors, err := meter.Int64Counter("vkloop.api.errors",
		metric.WithDescription("Number of API call errors"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		pollCycles:        pollCycles,
		pollLatency:       pollLatency,
		pollUpdates:       pollUpdates,
		handlerExecutions: handlerExecutions,
		handlerLatency:    handlerLatency,
		handlerErrors:     handlerErrors,
		apiCalls:          apiCalls,
		apiLatency:        apiLatency,
		apiErrors:         apiErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPoll records one poll cycle.
func (m *otelMetrics) RecordPoll(ctx context.Context, outcome string, duration time.Duration, updates int) {
	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
	}

	m.pollCycles.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.pollLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if updates > 0 {
		m.pollUpdates.Add(ctx, int64(updates))
	}
}

// RecordHandler records a handler execution.
func (m *otelMetrics) RecordHandler(ctx context.Context, handler string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("handler", handler),
	}

	m.handlerExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handlerLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordAPICall records an API method call.
func (m *otelMetrics) RecordAPICall(ctx context.Context, method string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
	}

	m.apiCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.apiErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
