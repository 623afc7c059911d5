package main

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	otelexport "github.com/MrEthical07/marketgate/metrics/export/otel"
)

const meterName = "github.com/MrEthical07/marketgate"

// logExporter pushes collected OTel metrics into the service log. Zero
// series are skipped.
type logExporter struct {
	logger *slog.Logger
}

func (e *logExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *logExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *logExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					e.emit(ctx, m.Name, dp.Attributes, dp.Value)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					e.emit(ctx, m.Name, dp.Attributes, dp.Value)
				}
			}
		}
	}
	return nil
}

func (e *logExporter) emit(ctx context.Context, name string, attrs attribute.Set, value int64) {
	if value == 0 {
		return
	}
	e.logger.InfoContext(ctx, "metric", "name", name, "attributes", attrs.Encoded(attribute.DefaultEncoder()), "value", value)
}

func (e *logExporter) ForceFlush(context.Context) error { return nil }

func (e *logExporter) Shutdown(context.Context) error { return nil }

// startOTel registers the engine's instruments on a provider fed by reader.
// The returned func unregisters them and shuts the provider down.
func startOTel(source otelexport.MetricsSource, reader sdkmetric.Reader) (func(context.Context) error, error) {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter, err := otelexport.New(provider.Meter(meterName), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}
	return func(ctx context.Context) error {
		return errors.Join(exporter.Close(), provider.Shutdown(ctx))
	}, nil
}
