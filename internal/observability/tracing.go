// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for the mnemoscope dashboard.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the mnemoscope tracer.
	TracerName = "github.com/mnemoverse/mnemoscope"
)

// Tracer returns the global mnemoscope tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// Environment is the deployment environment (development, staging, prod).
	Environment string
	// OTLPEndpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	// Empty disables export entirely.
	OTLPEndpoint string
	// SampleRate in [0, 1]. 1 samples every trace.
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "mnemoscope",
		ServiceVersion: "0.3.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the SDK provider so callers can shut it down
// without knowing whether export is enabled.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing sets up the global tracer provider and propagators.
// With no collector endpoint configured, spans are created but never
// exported, so instrumented code paths need no special casing.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans. A no-op provider has nothing to flush.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for mnemoscope operations.
const (
	SpanKindQuery  = "query"
	SpanKindLayout = "layout"
	SpanKindRender = "render"
)

// StartQuerySpan starts a span for a database query against a schema.
func StartQuerySpan(ctx context.Context, operation, schema string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("query.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("mnemoscope.span.kind", SpanKindQuery),
			attribute.String("db.operation", operation),
			attribute.String("db.schema", schema),
		),
	)
	return ctx, span
}

// StartLayoutSpan starts a span for a graph layout computation.
func StartLayoutSpan(ctx context.Context, nodeCount, edgeCount int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "layout.compute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mnemoscope.span.kind", SpanKindLayout),
			attribute.Int("graph.node_count", nodeCount),
			attribute.Int("graph.edge_count", edgeCount),
		),
	)
	return ctx, span
}

// RecordLayoutResult records the layout method and timing on a span.
func RecordLayoutResult(span trace.Span, method string, duration time.Duration) {
	span.SetAttributes(
		attribute.String("layout.method", method),
		attribute.Int64("layout.duration_ms", duration.Milliseconds()),
	)
}

// StartRenderSpan starts a span for visual encoding derivation.
func StartRenderSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "render.scene",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("mnemoscope.span.kind", SpanKindRender),
		),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
