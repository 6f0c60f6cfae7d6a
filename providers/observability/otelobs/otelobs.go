// Package otelobs implements observability.Provider on OpenTelemetry. Spans
// go to the configured TracerProvider, counters and histograms to a Meter,
// and log records to a slog-backed observer so they keep the usual format.
package otelobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/leofalp/plantcare/providers/observability"
	slogobs "github.com/leofalp/plantcare/providers/observability/slog"
)

const instrumentationName = "github.com/leofalp/plantcare"

// Setup installs a global TracerProvider exporting to an OTLP/HTTP collector
// at endpoint (host:port, or a URL; http:// disables TLS). Callers must
// Shutdown the returned provider to flush pending spans.
func Setup(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{}
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		opts = append(opts, otlptracehttp.WithEndpoint(strings.TrimPrefix(endpoint, "http://")), otlptracehttp.WithInsecure())
	case strings.HasPrefix(endpoint, "https://"):
		opts = append(opts, otlptracehttp.WithEndpoint(strings.TrimPrefix(endpoint, "https://")))
	default:
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Observer is an OpenTelemetry observability.Provider.
type Observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	*slogobs.Observer

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// Option configures an Observer.
type Option func(*config)

type config struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	logger         *slog.Logger
}

// WithTracerProvider overrides the global TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.tracerProvider = tp }
}

// WithMeterProvider overrides the global MeterProvider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) { c.meterProvider = mp }
}

// WithLogger sets the logger for log records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New returns an Observer using the global providers unless overridden.
func New(opts ...Option) *Observer {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.meterProvider == nil {
		cfg.meterProvider = otel.GetMeterProvider()
	}

	return &Observer{
		tracer:     cfg.tracerProvider.Tracer(instrumentationName),
		meter:      cfg.meterProvider.Meter(instrumentationName),
		Observer:   slogobs.New(cfg.logger),
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
}

func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(toKeyValues(attrs)...))
	s := &otelSpan{span: span}
	return observability.ContextWithSpan(ctx, s), s
}

func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok := o.counters[name]; ok {
		return c
	}
	instrument, err := o.meter.Int64Counter(name)
	if err != nil {
		o.Warn(context.Background(), "counter unavailable", observability.String("metric", name), observability.Error(err))
	}
	c := &counter{instrument: instrument}
	o.counters[name] = c
	return c
}

func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok := o.histograms[name]; ok {
		return h
	}
	instrument, err := o.meter.Float64Histogram(name)
	if err != nil {
		o.Warn(context.Background(), "histogram unavailable", observability.String("metric", name), observability.Error(err))
	}
	h := &histogram{instrument: instrument}
	o.histograms[name] = h
	return h
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...observability.Attribute) {
	s.span.SetAttributes(toKeyValues(attrs)...)
}

func (s *otelSpan) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.span.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.span.SetStatus(codes.Error, description)
	default:
		s.span.SetStatus(codes.Unset, description)
	}
}

func (s *otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

func (s *otelSpan) AddEvent(name string, attrs ...observability.Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toKeyValues(attrs)...))
}

type counter struct {
	instrument metric.Int64Counter
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	if c.instrument == nil {
		return
	}
	c.instrument.Add(ctx, value, metric.WithAttributes(toKeyValues(attrs)...))
}

type histogram struct {
	instrument metric.Float64Histogram
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	if h.instrument == nil {
		return
	}
	h.instrument.Record(ctx, value, metric.WithAttributes(toKeyValues(attrs)...))
}

func toKeyValues(attrs []observability.Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, toKeyValue(attr))
	}
	return out
}

func toKeyValue(attr observability.Attribute) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case float64:
		return attribute.Float64(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case time.Duration:
		return attribute.Int64(attr.Key+"_ms", v.Milliseconds())
	case fmt.Stringer:
		return attribute.String(attr.Key, v.String())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}
