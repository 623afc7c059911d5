// Package otel publishes engine metrics as OpenTelemetry observable
// instruments.
//
// Every decision counter becomes one series of [EventsName], told apart by
// the [EventKey] attribute. Authenticate latency is published as cumulative
// bucket gauges keyed by [BoundKey], plus a count gauge. One callback reads
// MetricsSnapshot per collection.
//
// Callers own the MeterProvider and its readers.
package otel
