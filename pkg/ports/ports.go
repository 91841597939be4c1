// Package ports declares the interfaces the controller depends on so that
// adapters (event bus, metrics) can be swapped or stubbed in tests.
package ports

import (
	"context"

	"github.com/aescanero/irrigation/pkg/domain"
)

// EventHandler receives a published event. Handlers must not block and must
// not call back into the controller that published the event.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus fans state-change events out to live subscribers.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// MetricsCollector records controller activity.
type MetricsCollector interface {
	RecordSensorReport(temperature, humidity, moisture float64)
	RecordManualUpdate(ph, weather float64)
	RecordRejected(reason string)
	RecordSafetyTrip(source string)
	RecordPumpCommand(result string)
	RecordPumpStatus(state domain.PumpState, mode domain.PumpMode, safetyActive bool)
}
