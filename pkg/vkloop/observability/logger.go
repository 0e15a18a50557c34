// Package observability provides production-grade observability features
// for vkloop: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event-pipeline context to a logger.
// Returns a new logger with dispatch_id and event_type fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "d-123", "message_new")
//	enriched.Info("routing") // includes dispatch_id, event_type
func EnrichLogger(logger *slog.Logger, dispatchID, eventType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("dispatch_id", dispatchID),
		slog.String("event_type", eventType),
	)
}

// LogSessionAcquired logs a successful long-poll session acquisition.
func LogSessionAcquired(logger *slog.Logger, server string, resumed bool) {
	if logger == nil {
		return
	}
	logger.Info("long-poll session acquired",
		slog.String("server", server),
		slog.Bool("resumed", resumed),
	)
}

// LogPollBatch logs a received update batch.
func LogPollBatch(logger *slog.Logger, updates int, ts string) {
	if logger == nil {
		return
	}
	logger.Debug("poll batch received",
		slog.Int("updates", updates),
		slog.String("ts", ts),
	)
}

// LogPollFailed logs a failed or malformed poll cycle (non-fatal).
func LogPollFailed(logger *slog.Logger, reason string, err error) {
	if logger == nil {
		return
	}
	attrs := []any{slog.String("reason", reason)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.Warn("poll cycle failed", attrs...)
}

// LogHandlerStart logs handler execution start.
func LogHandlerStart(logger *slog.Logger, handler string) {
	if logger == nil {
		return
	}
	logger.Debug("handler starting",
		slog.String("handler", handler),
	)
}

// LogHandlerComplete logs successful handler completion.
func LogHandlerComplete(logger *slog.Logger, handler string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("handler completed",
		slog.String("handler", handler),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHandlerError logs handler failure.
func LogHandlerError(logger *slog.Logger, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// LogEventDropped logs an event no registration matched.
func LogEventDropped(logger *slog.Logger, eventType string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped, no matching handler",
		slog.String("event_type", eventType),
	)
}

// LogAPIError logs an API call failure.
func LogAPIError(logger *slog.Logger, method string, err error) {
	if logger == nil {
		return
	}
	logger.Error("api call failed",
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
}

// LogCursorError logs cursor persistence failure (non-fatal).
func LogCursorError(logger *slog.Logger, name string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("cursor store failed",
		slog.String("session", name),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
