// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging across the plant-care gateway.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. The active Provider and [Span] travel through a
// [context.Context] via [ContextWithObserver] and [ContextWithSpan] so that
// provider implementations and the HTTP helpers can enrich the current span
// without taking an explicit dependency.
//
// Implementations live in sub-packages: slog (log/slog backed) and otelobs
// (OpenTelemetry backed).
package observability
