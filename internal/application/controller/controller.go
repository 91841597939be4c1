package controller

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/irrigation/pkg/domain"
	"github.com/aescanero/irrigation/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMoistureThreshold trips safety when a reading exceeds it.
const DefaultMoistureThreshold = 95.0

// Rejection reasons reported to the metrics collector.
const (
	ReasonInvalidSensorFormat = "invalid_sensor_format"
	ReasonInvalidSafetyValue  = "invalid_safety_value"
	ReasonInvalidJSON         = "invalid_json"
)

// Pump command outcomes reported to the metrics collector.
const (
	PumpCommandApplied    = "applied"
	PumpCommandSuppressed = "suppressed"
	PumpCommandIgnored    = "ignored"
)

// Safety trip sources reported to the metrics collector.
const (
	TripSourceAuto   = "auto"
	TripSourceManual = "manual"
)

// Options tunes controller behaviour.
type Options struct {
	// MoistureThreshold trips safety when moisture is strictly greater.
	// Zero selects DefaultMoistureThreshold.
	MoistureThreshold float64

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller holds the process-wide irrigation state
type Controller struct {
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger

	threshold float64
	now       func() time.Time

	// emitMu is taken before mu is released and held until the metrics and
	// events of a mutation are out, so side effects follow mutation order.
	emitMu sync.Mutex

	mu           sync.Mutex
	sensors      domain.SensorReading
	pump         domain.PumpState
	mode         domain.PumpMode
	safetyActive bool
}

// NewController creates a controller with start-up defaults: pump OFF,
// mode AUTO, safety inactive, pH 5.5 and weather 50.
func NewController(
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
	opts Options,
) *Controller {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if validator == nil {
		validator = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MoistureThreshold == 0 {
		opts.MoistureThreshold = DefaultMoistureThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		eventBus:  eventBus,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		threshold: opts.MoistureThreshold,
		now:       opts.Now,
		sensors:   domain.NewSensorReading(),
		pump:      domain.PumpOff,
		mode:      domain.PumpModeAuto,
	}
	c.metrics.RecordPumpStatus(c.pump, c.mode, c.safetyActive)

	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// Pump returns the effective pump status.
func (c *Controller) Pump() domain.PumpStatus {
	return c.Snapshot().PumpStatus()
}

// ReportSensorData stores a reading from the sensor node. A moisture value
// above the threshold activates safety and switches the pump OFF. Safety is
// never cleared by a later reading.
func (c *Controller) ReportSensorData(ctx context.Context, p Payload) (domain.Snapshot, error) {
	report, err := c.validator.SensorReport(p)
	if err != nil {
		c.metrics.RecordRejected(ReasonInvalidSensorFormat)
		c.logger.Warn("rejected sensor data", zap.Any("payload", map[string]interface{}(p)))
		return c.Snapshot(), err
	}

	c.mu.Lock()
	c.sensors.Temperature = report.Temperature
	c.sensors.Humidity = report.Humidity
	c.sensors.Moisture = report.Moisture
	c.sensors.LastUpdated = c.now()

	tripped := false
	if report.Moisture > c.threshold {
		tripped = !c.safetyActive
		c.safetyActive = true
		c.pump = domain.PumpOff
	}
	snap := c.snapshotLocked()
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Unlock()

	c.metrics.RecordSensorReport(report.Temperature, report.Humidity, report.Moisture)
	c.metrics.RecordPumpStatus(snap.StoredPump, snap.Mode, snap.SafetyActive)
	if tripped {
		c.metrics.RecordSafetyTrip(TripSourceAuto)
		c.logger.Warn("safety auto-trip",
			zap.Float64("moisture", report.Moisture),
			zap.Float64("threshold", c.threshold))
	}

	c.logger.Info("ESP32 data updated", sensorFields(snap)...)
	c.publish(ctx, domain.EventSensorReported, snap)

	return snap, nil
}

// ManualUpdate overwrites pH and weather when they are present and numeric.
// Anything else in the payload is ignored.
func (c *Controller) ManualUpdate(ctx context.Context, p Payload) domain.Snapshot {
	update := c.validator.ManualUpdate(p)

	c.mu.Lock()
	if update.PH != nil {
		c.sensors.PH = *update.PH
	}
	if update.Weather != nil {
		c.sensors.Weather = *update.Weather
	}
	snap := c.snapshotLocked()
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Unlock()

	c.metrics.RecordManualUpdate(snap.Sensors.PH, snap.Sensors.Weather)

	c.logger.Info("manual data updated", sensorFields(snap)...)
	c.publish(ctx, domain.EventManualUpdated, snap)

	return snap
}

// SetPump applies a pump command. The mode always follows a valid value; the
// state is dropped without error while safety is active.
func (c *Controller) SetPump(ctx context.Context, p Payload) domain.Snapshot {
	cmd := c.validator.PumpCommand(p)

	c.mu.Lock()
	if cmd.Mode != nil {
		c.mode = *cmd.Mode
	}
	result := PumpCommandIgnored
	if cmd.State != nil {
		if c.safetyActive {
			result = PumpCommandSuppressed
		} else {
			c.pump = *cmd.State
			result = PumpCommandApplied
		}
	} else if cmd.Mode != nil {
		result = PumpCommandApplied
	}
	snap := c.snapshotLocked()
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Unlock()

	c.metrics.RecordPumpCommand(result)
	c.metrics.RecordPumpStatus(snap.StoredPump, snap.Mode, snap.SafetyActive)

	c.logger.Info("pump updated",
		zap.String("pump_state", string(snap.StoredPump)),
		zap.String("pump_mode", string(snap.Mode)),
		zap.Bool("safety_active", snap.SafetyActive),
		zap.String("result", result))
	c.publish(ctx, domain.EventPumpUpdated, snap)

	return snap
}

// SetSafety sets the safety flag. Activating it also switches the pump OFF;
// clearing it leaves the pump OFF until an operator turns it back on.
func (c *Controller) SetSafety(ctx context.Context, p Payload) (domain.Snapshot, error) {
	active, err := c.validator.Safety(p)
	if err != nil {
		c.metrics.RecordRejected(ReasonInvalidSafetyValue)
		c.logger.Warn("rejected safety value", zap.Any("active", p["active"]))
		return c.Snapshot(), err
	}

	c.mu.Lock()
	tripped := active && !c.safetyActive
	c.safetyActive = active
	if active {
		c.pump = domain.PumpOff
	}
	snap := c.snapshotLocked()
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.mu.Unlock()

	c.metrics.RecordPumpStatus(snap.StoredPump, snap.Mode, snap.SafetyActive)
	if tripped {
		c.metrics.RecordSafetyTrip(TripSourceManual)
	}

	c.logger.Info("safety status changed",
		zap.Bool("safety_active", snap.SafetyActive),
		zap.String("pump_state", string(snap.StoredPump)))
	c.publish(ctx, domain.EventSafetyChanged, snap)

	return snap, nil
}

// RecordInvalidJSON counts a request whose body could not be decoded.
func (c *Controller) RecordInvalidJSON() {
	c.metrics.RecordRejected(ReasonInvalidJSON)
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Sensors:      c.sensors,
		StoredPump:   c.pump,
		Mode:         c.mode,
		SafetyActive: c.safetyActive,
	}
}

// publish sends the post-mutation state to live subscribers
func (c *Controller) publish(ctx context.Context, eventType domain.EventType, snap domain.Snapshot) {
	if c.eventBus == nil {
		return
	}

	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: c.now(),
		Data:      snap.SensorsView(),
	}

	if err := c.eventBus.Publish(ctx, domain.TopicState, event); err != nil {
		c.logger.Error("failed to publish state event",
			zap.String("event_id", event.ID),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}

func sensorFields(snap domain.Snapshot) []zap.Field {
	fields := []zap.Field{
		zap.Float64("temperature", snap.Sensors.Temperature),
		zap.Float64("humidity", snap.Sensors.Humidity),
		zap.Float64("moisture", snap.Sensors.Moisture),
		zap.Float64("ph", snap.Sensors.PH),
		zap.Float64("weather", snap.Sensors.Weather),
	}
	if !snap.Sensors.LastUpdated.IsZero() {
		fields = append(fields, zap.Time("last_updated", snap.Sensors.LastUpdated))
	}
	return append(fields,
		zap.String("pump_state", string(snap.EffectivePump())),
		zap.Bool("safety_active", snap.SafetyActive))
}

type nopMetrics struct{}

func (nopMetrics) RecordSensorReport(float64, float64, float64)              {}
func (nopMetrics) RecordManualUpdate(float64, float64)                       {}
func (nopMetrics) RecordRejected(string)                                     {}
func (nopMetrics) RecordSafetyTrip(string)                                   {}
func (nopMetrics) RecordPumpCommand(string)                                  {}
func (nopMetrics) RecordPumpStatus(domain.PumpState, domain.PumpMode, bool) {}
