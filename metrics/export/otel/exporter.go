package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/metrics/export/internaldefs"
)

// Instrument names.
const (
	EventsName        = "marketgate.gate.events"
	LatencyBucketName = "marketgate.authenticate.latency.bucket"
	LatencyCountName  = "marketgate.authenticate.latency.count"
	AuditDroppedName  = "marketgate.audit.dropped"

	// EventKey carries the decision outcome, e.g. "not_owner".
	EventKey = attribute.Key("event")
	// BoundKey carries a latency bucket's upper bound in seconds.
	BoundKey = attribute.Key("le")
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is what the exporter observes. *marketgate.Engine satisfies it.
type MetricsSource interface {
	MetricsSnapshot() marketgate.MetricsSnapshot
	AuditDropped() uint64
}

type eventSeries struct {
	id   marketgate.MetricID
	attr metric.MeasurementOption
}

// Exporter publishes every gate outcome as one series of a single counter,
// so dashboards can group or filter by event instead of joining names.
type Exporter struct {
	source       MetricsSource
	registration metric.Registration

	events       metric.Int64ObservableCounter
	series       []eventSeries
	bucket       metric.Int64ObservableGauge
	bounds       []metric.MeasurementOption
	count        metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// EventName derives the event attribute from a counter definition:
// "marketgate_not_owner_total" becomes "not_owner".
func EventName(def internaldefs.CounterDef) string {
	return strings.TrimSuffix(strings.TrimPrefix(def.Name, "marketgate_"), "_total")
}

// New registers the instruments on meter.
func New(meter metric.Meter, source MetricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var err error

	e.events, err = meter.Int64ObservableCounter(EventsName,
		metric.WithDescription("Gate decisions and account events, by event."))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", EventsName, err)
	}
	for _, def := range internaldefs.CounterDefs {
		e.series = append(e.series, eventSeries{
			id:   def.ID,
			attr: metric.WithAttributes(EventKey.String(EventName(def))),
		})
	}

	e.bucket, err = meter.Int64ObservableGauge(LatencyBucketName,
		metric.WithDescription("Cumulative authenticate latency samples at or below le seconds."))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyBucketName, err)
	}
	for _, b := range internaldefs.HistogramUpperBounds {
		e.bounds = append(e.bounds, metric.WithAttributes(BoundKey.String(strconv.FormatFloat(b, 'g', -1, 64))))
	}
	e.bounds = append(e.bounds, metric.WithAttributes(BoundKey.String("+Inf")))

	e.count, err = meter.Int64ObservableGauge(LatencyCountName,
		metric.WithDescription("Authenticate calls measured."))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", LatencyCountName, err)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", AuditDroppedName, err)
	}

	e.registration, err = meter.RegisterCallback(e.observe, e.events, e.bucket, e.count, e.auditDropped)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, s := range e.series {
		o.ObserveInt64(e.events, int64(snapshot.Counters[s.id]), s.attr)
	}

	latency := snapshot.Histograms[marketgate.MetricAuthenticateLatency]
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(latency))
	for i, opt := range e.bounds {
		o.ObserveInt64(e.bucket, int64(cumulative[i]), opt)
	}
	o.ObserveInt64(e.count, int64(cumulative[len(cumulative)-1]))

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
