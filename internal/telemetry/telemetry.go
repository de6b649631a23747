// Package telemetry configures OpenTelemetry tracing for fbconsole.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

const exportTimeout = 10 * time.Second

// Config holds the telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is an OTLP/HTTP collector, either host:port or a full URL.
	// Empty disables export.
	Endpoint string
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Initialize installs the global propagator and, when an endpoint is set,
// a batching tracer provider exporting over OTLP/HTTP. Without an endpoint
// the global no-op provider stays in place.
func Initialize(ctx context.Context, cfg Config) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(exporterOptions(endpoint)...))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func exporterOptions(endpoint string) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithTimeout(exportTimeout)}
	if strings.Contains(endpoint, "://") {
		return append(opts, otlptracehttp.WithEndpointURL(endpoint))
	}
	// Bare host:port is a local collector.
	return append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
}
