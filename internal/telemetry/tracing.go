// Package telemetry sets up the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/kailas-cloud/weightedterms/internal/version"
)

// Config holds tracer settings.
type Config struct {
	ServiceName string
	SampleRatio float64
}

// InitTracer installs a global tracer provider sampling SampleRatio of root traces.
// The returned function flushes and shuts the provider down.
func InitTracer(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	provider := NewProvider(res, cfg.SampleRatio)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// NewProvider creates a parent-based ratio sampling tracer provider.
func NewProvider(res *resource.Resource, ratio float64, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	}, opts...)
	return sdktrace.NewTracerProvider(opts...)
}
