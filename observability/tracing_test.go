package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing(t *testing.T) {
	tp, err := InitTracing("crewkit-test", false)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := GetTracer("crewkit.test")
	_, span := tracer.Start(context.Background(), "test-span")
	if !span.SpanContext().IsValid() {
		t.Error("expected a valid span context")
	}
	span.End()
}

func TestSpansExported(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := GetTracer("crewkit.test")
	_, span := tracer.Start(context.Background(), "round-span")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "round-span" {
		t.Errorf("span name = %s, want round-span", spans[0].Name)
	}
}

func TestShutdownTracingWithoutInit(t *testing.T) {
	globalTracerProvider = nil
	if err := ShutdownTracing(context.Background()); err != nil {
		t.Errorf("ShutdownTracing on uninitialized provider: %v", err)
	}
}
