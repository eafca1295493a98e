package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig selects and configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled  bool
	Endpoint string // e.g. "localhost:4317" (grpc) or "localhost:4318" (http)
	Protocol string // "grpc" | "http"
}

// Shutdown flushes and stops the tracer provider; callers defer it from
// main.
type Shutdown func(ctx context.Context) error

// InitTracing wires the global trace provider used by StartSpan. When
// cfg.Enabled is false it installs a no-op provider so StartSpan calls
// elsewhere in the codebase stay cheap and unconditional.
func InitTracing(ctx context.Context, serviceName string, cfg TracingConfig) (Shutdown, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Protocol {
	case "http":
		exporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
	default:
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
	}
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// tracer is looked up lazily so InitTracing can be called after package
// init (it sets the global provider StartSpan reads from).
func tracer() trace.Tracer {
	return otel.Tracer("github.com/teamatoi/meetcore")
}

// StartSpan starts a span named name under ctx's existing span, if any.
// Safe to call even when tracing is disabled (no-op tracer).
func StartSpan(ctx context.Context, name string, attrs ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, attrs...)
}
