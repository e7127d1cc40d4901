package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// MeterProvider global instance
var globalMeterProvider *sdkmetric.MeterProvider

// InitMetrics initializes OpenTelemetry metrics with Prometheus export.
func InitMetrics(serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	globalMeterProvider = provider
	return provider, nil
}

// GetMeter returns a meter from the current global meter provider.
func GetMeter(name string) metric.Meter {
	// Always get meter from current global provider
	// This allows tests to inject their own provider
	return otel.Meter(name)
}

// EngineMetrics collects per-round instruments for the batch engine.
type EngineMetrics struct {
	meter            metric.Meter
	roundCounter     metric.Int64Counter
	callCounter      metric.Int64Counter
	fallbackCounter  metric.Int64Counter
	costCounter      metric.Float64Counter
	tokenCounter     metric.Int64Counter
	roundLatencyHist metric.Float64Histogram
}

// NewEngineMetrics creates the engine instrument set.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := GetMeter("crewkit.observability")

	roundCounter, err := meter.Int64Counter(
		"crewkit.engine.rounds",
		metric.WithDescription("Total number of persona rounds"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create round counter: %w", err)
	}

	callCounter, err := meter.Int64Counter(
		"crewkit.engine.upstream_calls",
		metric.WithDescription("Upstream model calls, by execution kind"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create call counter: %w", err)
	}

	fallbackCounter, err := meter.Int64Counter(
		"crewkit.engine.fallbacks",
		metric.WithDescription("Batch groups that fell back to individual calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	costCounter, err := meter.Float64Counter(
		"crewkit.engine.cost_usd",
		metric.WithDescription("Upstream spend in USD, by model"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost counter: %w", err)
	}

	tokenCounter, err := meter.Int64Counter(
		"crewkit.engine.tokens",
		metric.WithDescription("Tokens consumed upstream, by model"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token counter: %w", err)
	}

	roundLatencyHist, err := meter.Float64Histogram(
		"crewkit.engine.round_latency",
		metric.WithDescription("Wall-clock round latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create round latency histogram: %w", err)
	}

	return &EngineMetrics{
		meter:            meter,
		roundCounter:     roundCounter,
		callCounter:      callCounter,
		fallbackCounter:  fallbackCounter,
		costCounter:      costCounter,
		tokenCounter:     tokenCounter,
		roundLatencyHist: roundLatencyHist,
	}, nil
}

// RecordRound records one completed round. Safe on a nil receiver so the
// engine can run without metrics wired.
func (m *EngineMetrics) RecordRound(ctx context.Context, personas, groups int, fallback bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Int("round.personas", personas),
		attribute.Int("round.groups", groups),
	)
	m.roundCounter.Add(ctx, 1, attrs)
	m.roundLatencyHist.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	if fallback {
		m.fallbackCounter.Add(ctx, 1)
	}
}

// RecordCall records one upstream call's outcome.
func (m *EngineMetrics) RecordCall(ctx context.Context, modelID, kind string, tokens int, costUSD float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model.id", modelID),
		attribute.String("execution.kind", kind),
	)
	m.callCounter.Add(ctx, 1, attrs)
	m.tokenCounter.Add(ctx, int64(tokens), attrs)
	m.costCounter.Add(ctx, costUSD, attrs)
}

// ShutdownMetrics gracefully shuts down the meter provider.
func ShutdownMetrics(ctx context.Context) error {
	if globalMeterProvider != nil {
		return globalMeterProvider.Shutdown(ctx)
	}
	return nil
}
