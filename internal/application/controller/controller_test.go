package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/irrigation/pkg/domain"
	"github.com/aescanero/irrigation/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, topic string, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if topic == domain.TopicState {
		b.events = append(b.events, event)
	}
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string, ports.EventHandler) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

type countingMetrics struct {
	nopMetrics
	mu       sync.Mutex
	rejected map[string]int
	trips    map[string]int
	commands map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		rejected: map[string]int{},
		trips:    map[string]int{},
		commands: map[string]int{},
	}
}

func (m *countingMetrics) RecordRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *countingMetrics) RecordSafetyTrip(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[source]++
}

func (m *countingMetrics) RecordPumpCommand(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[result]++
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestController(t *testing.T) (*Controller, *recordingBus, *countingMetrics) {
	t.Helper()
	bus := &recordingBus{}
	metrics := newCountingMetrics()
	c := NewController(bus, metrics, NewValidator(), zap.NewNop(), Options{
		Now: func() time.Time { return fixedNow },
	})
	return c, bus, metrics
}

func reading(t, h, m float64) Payload {
	return Payload{"temperature": t, "humidity": h, "moisture": m}
}

func TestNewControllerDefaults(t *testing.T) {
	c, _, _ := newTestController(t)

	snap := c.Snapshot()
	assert.Equal(t, 0.0, snap.Sensors.Temperature)
	assert.Equal(t, 0.0, snap.Sensors.Humidity)
	assert.Equal(t, 0.0, snap.Sensors.Moisture)
	assert.Equal(t, 5.5, snap.Sensors.PH)
	assert.Equal(t, 50.0, snap.Sensors.Weather)
	assert.True(t, snap.Sensors.LastUpdated.IsZero())
	assert.Equal(t, domain.PumpOff, snap.StoredPump)
	assert.Equal(t, domain.PumpModeAuto, snap.Mode)
	assert.False(t, snap.SafetyActive)
}

func TestReportSensorDataStoresReading(t *testing.T) {
	c, bus, _ := newTestController(t)

	snap, err := c.ReportSensorData(context.Background(), reading(24.5, 61, 40))
	require.NoError(t, err)

	assert.Equal(t, 24.5, snap.Sensors.Temperature)
	assert.Equal(t, 61.0, snap.Sensors.Humidity)
	assert.Equal(t, 40.0, snap.Sensors.Moisture)
	assert.Equal(t, fixedNow, snap.Sensors.LastUpdated)
	assert.False(t, snap.SafetyActive)
	assert.Equal(t, []domain.EventType{domain.EventSensorReported}, bus.types())
}

func TestReportSensorDataRejectsNonNumeric(t *testing.T) {
	c, bus, metrics := newTestController(t)
	_, err := c.ReportSensorData(context.Background(), reading(20, 50, 30))
	require.NoError(t, err)
	before := c.Snapshot()

	payloads := []Payload{
		{"temperature": "hot", "humidity": 50.0, "moisture": 30.0},
		{"temperature": 20.0, "humidity": nil, "moisture": 30.0},
		{"temperature": 20.0, "humidity": 50.0},
		{"temperature": 20.0, "humidity": 50.0, "moisture": true},
		{},
	}
	for _, p := range payloads {
		_, err := c.ReportSensorData(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidSensorFormat)
	}

	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, len(payloads), metrics.rejected[ReasonInvalidSensorFormat])
	assert.Len(t, bus.types(), 1)
}

func TestReportSensorDataAutoTrip(t *testing.T) {
	c, _, metrics := newTestController(t)
	c.SetPump(context.Background(), Payload{"state": "ON"})

	snap, err := c.ReportSensorData(context.Background(), reading(20, 50, 95))
	require.NoError(t, err)
	assert.False(t, snap.SafetyActive, "threshold is exclusive")
	assert.Equal(t, domain.PumpOn, snap.StoredPump)

	snap, err = c.ReportSensorData(context.Background(), reading(20, 50, 96))
	require.NoError(t, err)
	assert.True(t, snap.SafetyActive)
	assert.Equal(t, domain.PumpOff, snap.StoredPump)
	assert.Equal(t, domain.PumpStatus{State: domain.PumpOff, Mode: domain.PumpModeAuto, SafetyActive: true}, c.Pump())
	assert.Equal(t, 1, metrics.trips[TripSourceAuto])
}

func TestAutoTripIsNotClearedByLowMoisture(t *testing.T) {
	c, _, metrics := newTestController(t)

	_, err := c.ReportSensorData(context.Background(), reading(20, 50, 99))
	require.NoError(t, err)
	_, err = c.ReportSensorData(context.Background(), reading(20, 50, 97))
	require.NoError(t, err)
	snap, err := c.ReportSensorData(context.Background(), reading(20, 50, 10))
	require.NoError(t, err)

	assert.True(t, snap.SafetyActive)
	assert.Equal(t, 1, metrics.trips[TripSourceAuto], "only the transition counts")
}

func TestCustomMoistureThreshold(t *testing.T) {
	c := NewController(nil, nil, nil, nil, Options{MoistureThreshold: 80})

	snap, err := c.ReportSensorData(context.Background(), reading(20, 50, 81))
	require.NoError(t, err)
	assert.True(t, snap.SafetyActive)
}

func TestZeroMoistureThresholdUsesDefault(t *testing.T) {
	c := NewController(nil, nil, nil, nil, Options{})

	snap, err := c.ReportSensorData(context.Background(), reading(20, 50, DefaultMoistureThreshold))
	require.NoError(t, err)
	assert.False(t, snap.SafetyActive)

	snap, err = c.ReportSensorData(context.Background(), reading(20, 50, DefaultMoistureThreshold+1))
	require.NoError(t, err)
	assert.True(t, snap.SafetyActive)
}

func TestManualUpdateOnlyTouchesPresentNumbers(t *testing.T) {
	c, bus, _ := newTestController(t)

	snap := c.ManualUpdate(context.Background(), Payload{"ph": 6.2})
	assert.Equal(t, 6.2, snap.Sensors.PH)
	assert.Equal(t, 50.0, snap.Sensors.Weather)

	snap = c.ManualUpdate(context.Background(), Payload{"ph": "acid", "weather": 70.0})
	assert.Equal(t, 6.2, snap.Sensors.PH)
	assert.Equal(t, 70.0, snap.Sensors.Weather)

	snap = c.ManualUpdate(context.Background(), Payload{})
	assert.Equal(t, 6.2, snap.Sensors.PH)
	assert.Equal(t, 70.0, snap.Sensors.Weather)

	assert.Equal(t, []domain.EventType{
		domain.EventManualUpdated,
		domain.EventManualUpdated,
		domain.EventManualUpdated,
	}, bus.types())
}

func TestSetPump(t *testing.T) {
	c, _, metrics := newTestController(t)

	snap := c.SetPump(context.Background(), Payload{"state": "ON", "mode": "MANUAL"})
	assert.Equal(t, domain.PumpOn, snap.StoredPump)
	assert.Equal(t, domain.PumpModeManual, snap.Mode)

	snap = c.SetPump(context.Background(), Payload{"state": "on", "mode": "automatic"})
	assert.Equal(t, domain.PumpOn, snap.StoredPump)
	assert.Equal(t, domain.PumpModeManual, snap.Mode)

	snap = c.SetPump(context.Background(), Payload{"mode": "AUTO"})
	assert.Equal(t, domain.PumpOn, snap.StoredPump)
	assert.Equal(t, domain.PumpModeAuto, snap.Mode)

	assert.Equal(t, 2, metrics.commands[PumpCommandApplied])
	assert.Equal(t, 1, metrics.commands[PumpCommandIgnored])
}

func TestSetPumpSuppressedWhileSafetyActive(t *testing.T) {
	c, _, metrics := newTestController(t)
	_, err := c.SetSafety(context.Background(), Payload{"active": true})
	require.NoError(t, err)

	snap := c.SetPump(context.Background(), Payload{"state": "ON", "mode": "MANUAL"})
	assert.Equal(t, domain.PumpOff, snap.StoredPump)
	assert.Equal(t, domain.PumpModeManual, snap.Mode, "mode still follows the command")
	assert.Equal(t, domain.PumpOff, c.Pump().State)
	assert.Equal(t, 1, metrics.commands[PumpCommandSuppressed])
}

func TestSetSafety(t *testing.T) {
	c, bus, metrics := newTestController(t)
	c.SetPump(context.Background(), Payload{"state": "ON"})

	snap, err := c.SetSafety(context.Background(), Payload{"active": true})
	require.NoError(t, err)
	assert.True(t, snap.SafetyActive)
	assert.Equal(t, domain.PumpOff, snap.StoredPump)

	snap, err = c.SetSafety(context.Background(), Payload{"active": false})
	require.NoError(t, err)
	assert.False(t, snap.SafetyActive)
	assert.Equal(t, domain.PumpOff, snap.StoredPump, "clearing safety does not restore the pump")

	assert.Equal(t, 1, metrics.trips[TripSourceManual])
	assert.Equal(t, []domain.EventType{
		domain.EventPumpUpdated,
		domain.EventSafetyChanged,
		domain.EventSafetyChanged,
	}, bus.types())
}

func TestSetSafetyRejectsNonBoolean(t *testing.T) {
	c, bus, metrics := newTestController(t)

	for _, p := range []Payload{{"active": "true"}, {"active": 1.0}, {"active": nil}, {}} {
		_, err := c.SetSafety(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidSafetyValue)
	}

	assert.False(t, c.Snapshot().SafetyActive)
	assert.Empty(t, bus.types())
	assert.Equal(t, 4, metrics.rejected[ReasonInvalidSafetyValue])
}

func TestMutationsLogLabeledSnapshot(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	c := NewController(nil, nil, nil, zap.New(core), Options{})

	_, err := c.ReportSensorData(context.Background(), reading(21, 40, 30))
	require.NoError(t, err)
	c.ManualUpdate(context.Background(), Payload{"ph": 6.0})
	c.SetPump(context.Background(), Payload{"state": "ON"})
	_, err = c.SetSafety(context.Background(), Payload{"active": false})
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("ESP32 data updated").Len())
	assert.Equal(t, 1, logs.FilterMessage("manual data updated").Len())
	assert.Equal(t, 1, logs.FilterMessage("pump updated").Len())
	assert.Equal(t, 1, logs.FilterMessage("safety status changed").Len())

	entry := logs.FilterMessage("ESP32 data updated").All()[0]
	assert.Equal(t, 30.0, entry.ContextMap()["moisture"])
}

func TestEventsCarryPostMutationState(t *testing.T) {
	c, bus, _ := newTestController(t)

	_, err := c.ReportSensorData(context.Background(), reading(20, 50, 96))
	require.NoError(t, err)

	require.Len(t, bus.events, 1)
	event := bus.events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, fixedNow, event.Timestamp)
	assert.Equal(t, 96.0, event.Data.Moisture)
	assert.True(t, event.Data.SafetyActive)
	assert.Equal(t, domain.PumpOff, event.Data.PumpState)
}

func TestConcurrentOperations(t *testing.T) {
	c := NewController(nil, nil, nil, nil, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(4)
		go func(i int) {
			defer wg.Done()
			_, _ = c.ReportSensorData(context.Background(), reading(20, 50, float64(i)))
		}(i)
		go func() {
			defer wg.Done()
			c.SetPump(context.Background(), Payload{"state": "ON"})
		}()
		go func() {
			defer wg.Done()
			c.ManualUpdate(context.Background(), Payload{"ph": 6.5})
		}()
		go func() {
			defer wg.Done()
			_ = c.Pump()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.False(t, snap.SafetyActive)
	assert.Equal(t, domain.PumpOn, snap.StoredPump)
	assert.Equal(t, 6.5, snap.Sensors.PH)
}

// gatedBus holds the first published event until release is closed.
type gatedBus struct {
	recordingBus
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *gatedBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return b.recordingBus.Publish(ctx, topic, event)
}

type lastPumpStatus struct {
	nopMetrics
	mu     sync.Mutex
	state  domain.PumpState
	safety bool
}

func (m *lastPumpStatus) RecordPumpStatus(state domain.PumpState, _ domain.PumpMode, safetyActive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = domain.EffectivePumpState(state, safetyActive)
	m.safety = safetyActive
}

func TestSideEffectsFollowMutationOrder(t *testing.T) {
	bus := &gatedBus{entered: make(chan struct{}), release: make(chan struct{})}
	metrics := &lastPumpStatus{}
	c := NewController(bus, metrics, nil, nil, Options{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.SetPump(context.Background(), Payload{"state": "ON"})
	}()
	<-bus.entered

	go func() {
		defer wg.Done()
		_, _ = c.SetSafety(context.Background(), Payload{"active": true})
	}()
	time.Sleep(50 * time.Millisecond)
	close(bus.release)
	wg.Wait()

	require.Len(t, bus.events, 2)
	last := bus.events[1]
	assert.Equal(t, domain.EventSafetyChanged, last.Type)
	assert.True(t, last.Data.SafetyActive)
	assert.Equal(t, domain.PumpOff, last.Data.PumpState)

	assert.True(t, metrics.safety)
	assert.Equal(t, domain.PumpOff, metrics.state)
	assert.Equal(t, domain.PumpOff, c.Pump().State)
}
