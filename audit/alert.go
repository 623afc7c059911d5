package audit

import (
	"context"
	"log/slog"

	evbus "github.com/asaskevich/EventBus"
)

// TopicCritical is the EventBus topic critical entries are published on.
const TopicCritical = "audit:critical"

// Alerter is notified of every critical entry after it was handed to the sink.
type Alerter interface {
	Alert(ctx context.Context, entry Entry)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(ctx context.Context, entry Entry)

// Alert implements Alerter.
func (f AlertFunc) Alert(ctx context.Context, entry Entry) { f(ctx, entry) }

// LogAlerter raises critical entries as error-level log records.
type LogAlerter struct {
	Logger *slog.Logger
}

// Alert implements Alerter.
func (a LogAlerter) Alert(ctx context.Context, e Entry) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "critical security event",
		"event_type", string(e.EventType),
		"action", e.Action,
		"entry_id", e.ID,
		"user_id", e.UserID,
		"ip", e.IPAddress,
	)
}

// EventBusAlerter publishes critical entries on TopicCritical so that
// in-process subscribers (pagers, webhooks) can react.
type EventBusAlerter struct {
	bus evbus.Bus
}

// NewEventBusAlerter publishes on bus; nil creates a private bus.
func NewEventBusAlerter(bus evbus.Bus) *EventBusAlerter {
	if bus == nil {
		bus = evbus.New()
	}
	return &EventBusAlerter{bus: bus}
}

// Bus exposes the underlying bus for subscribers.
func (a *EventBusAlerter) Bus() evbus.Bus {
	return a.bus
}

// Alert implements Alerter.
func (a *EventBusAlerter) Alert(_ context.Context, e Entry) {
	a.bus.Publish(TopicCritical, e)
}
