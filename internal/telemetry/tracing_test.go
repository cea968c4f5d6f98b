package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_RecordsSampledSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := NewProvider(resource.Empty(), 1, sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := provider.Tracer("test").Start(context.Background(), "panel.search")
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "panel.search" {
		t.Fatalf("expected one panel.search span, got %d", len(spans))
	}
}

func TestNewProvider_ZeroRatioDropsRoots(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := NewProvider(resource.Empty(), 0, sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := provider.Tracer("test").Start(context.Background(), "panel.search")
	span.End()

	if len(recorder.Ended()) != 0 {
		t.Error("expected no sampled spans")
	}
}

func TestInitTracer_SetsGlobalProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "weightedterms-test", SampleRatio: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Errorf("expected sdk provider, got %T", otel.GetTracerProvider())
	}
}
