package domain

import "time"

// Defaults applied when the process starts.
const (
	DefaultPH      = 5.5
	DefaultWeather = 50.0
)

// timestampLayout renders lastUpdated with millisecond precision in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SensorReading is the last reading pushed by the sensor node plus the
// operator overrides for pH and weather.
type SensorReading struct {
	Temperature float64
	Humidity    float64
	Moisture    float64
	PH          float64
	Weather     float64
	LastUpdated time.Time
}

// NewSensorReading returns a reading with start-up defaults.
func NewSensorReading() SensorReading {
	return SensorReading{
		PH:      DefaultPH,
		Weather: DefaultWeather,
	}
}

// Snapshot is a consistent copy of the whole controller state.
type Snapshot struct {
	Sensors      SensorReading
	StoredPump   PumpState
	Mode         PumpMode
	SafetyActive bool
}

// EffectivePump is the pump state clients are allowed to see.
func (s Snapshot) EffectivePump() PumpState {
	return EffectivePumpState(s.StoredPump, s.SafetyActive)
}

// SensorsView is the JSON shape of GET /api/sensors.
type SensorsView struct {
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	Moisture     float64   `json:"moisture"`
	PH           float64   `json:"ph"`
	Weather      float64   `json:"weather"`
	LastUpdated  *string   `json:"lastUpdated"`
	PumpState    PumpState `json:"pumpState"`
	PumpMode     PumpMode  `json:"pumpMode"`
	SafetyActive bool      `json:"safetyActive"`
}

// SensorsView flattens the snapshot into the sensors response.
func (s Snapshot) SensorsView() SensorsView {
	view := SensorsView{
		Temperature:  s.Sensors.Temperature,
		Humidity:     s.Sensors.Humidity,
		Moisture:     s.Sensors.Moisture,
		PH:           s.Sensors.PH,
		Weather:      s.Sensors.Weather,
		PumpState:    s.EffectivePump(),
		PumpMode:     s.Mode,
		SafetyActive: s.SafetyActive,
	}
	if !s.Sensors.LastUpdated.IsZero() {
		ts := s.Sensors.LastUpdated.UTC().Format(timestampLayout)
		view.LastUpdated = &ts
	}
	return view
}

// PumpStatus is the JSON shape of GET /api/pump.
type PumpStatus struct {
	State        PumpState `json:"state"`
	Mode         PumpMode  `json:"mode"`
	SafetyActive bool      `json:"safetyActive"`
}

// PumpStatus reports the effective pump state.
func (s Snapshot) PumpStatus() PumpStatus {
	return PumpStatus{
		State:        s.EffectivePump(),
		Mode:         s.Mode,
		SafetyActive: s.SafetyActive,
	}
}

// SafetyStatus is returned after a safety change.
type SafetyStatus struct {
	SafetyActive bool      `json:"safetyActive"`
	PumpState    PumpState `json:"pumpState"`
}

// SafetyStatus reports the safety flag and the effective pump state.
func (s Snapshot) SafetyStatus() SafetyStatus {
	return SafetyStatus{
		SafetyActive: s.SafetyActive,
		PumpState:    s.EffectivePump(),
	}
}
