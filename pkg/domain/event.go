package domain

import "time"

// EventType identifies the mutation that produced an event.
type EventType string

const (
	EventSnapshot       EventType = "snapshot"
	EventSensorReported EventType = "sensor.reported"
	EventManualUpdated  EventType = "manual.updated"
	EventPumpUpdated    EventType = "pump.updated"
	EventSafetyChanged  EventType = "safety.changed"
)

// TopicState is the event bus topic carrying state changes.
const TopicState = "state.events"

// Event carries the post-mutation state to live subscribers.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      SensorsView `json:"data"`
}
