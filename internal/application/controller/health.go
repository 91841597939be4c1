package controller

import "time"

// NodeStatus describes how recently the sensor node reported.
type NodeStatus string

const (
	NodeNeverReported NodeStatus = "never_reported"
	NodeOK            NodeStatus = "ok"
	NodeStale         NodeStatus = "stale"
)

// HealthStatus represents the health of the controller and its sensor node
type HealthStatus struct {
	SensorNode   NodeStatus
	LastUpdated  time.Time
	Age          time.Duration
	SafetyActive bool
	Timestamp    time.Time
}

// Health evaluates sensor node freshness against staleAfter. It is computed
// on demand; nothing polls in the background.
func (c *Controller) Health(staleAfter time.Duration) HealthStatus {
	snap := c.Snapshot()
	now := c.now()

	status := HealthStatus{
		SensorNode:   NodeNeverReported,
		LastUpdated:  snap.Sensors.LastUpdated,
		SafetyActive: snap.SafetyActive,
		Timestamp:    now,
	}
	if snap.Sensors.LastUpdated.IsZero() {
		return status
	}

	status.Age = now.Sub(snap.Sensors.LastUpdated)
	status.SensorNode = NodeOK
	if staleAfter > 0 && status.Age > staleAfter {
		status.SensorNode = NodeStale
	}
	return status
}
