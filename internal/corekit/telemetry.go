package corekit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry is a span factory plus metric recording, kept optional
// everywhere it is consumed.
type Telemetry interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
	RecordMetric(name string, value float64, labels map[string]string)
}

// Span is one traced operation.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

// NoOpTelemetry discards spans and metrics. Default when no tracer
// provider is configured.
type NoOpTelemetry struct{}

func (NoOpTelemetry) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noOpSpan{}
}
func (NoOpTelemetry) RecordMetric(string, float64, map[string]string) {}

type noOpSpan struct{}

func (noOpSpan) End() {}
func (noOpSpan) SetAttribute(string, interface{}) {}
func (noOpSpan) RecordError(error) {}

// OTelTelemetry backs Telemetry with a real OpenTelemetry tracer. Metric
// recording is left to whatever MeterProvider the caller configured
// globally; this module only needs spans for broker delivery and executor
// protocol runs.
type OTelTelemetry struct {
	tracer oteltrace.Tracer
}

// NewOTelTelemetry builds a Telemetry backed by the named tracer from the
// globally configured otel TracerProvider.
func NewOTelTelemetry(tracerName string) *OTelTelemetry {
	return &OTelTelemetry{tracer: otel.Tracer(tracerName)}
}

func (t *OTelTelemetry) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	spanCtx, span := t.tracer.Start(ctx, name)
	return spanCtx, &otelSpan{span: span}
}

func (t *OTelTelemetry) RecordMetric(string, float64, map[string]string) {}

type otelSpan struct {
	span oteltrace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprint(v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}
