package controller

import (
	"encoding/json"
	"errors"

	"github.com/aescanero/irrigation/pkg/domain"
)

var (
	// ErrInvalidSensorFormat is returned when temperature, humidity or
	// moisture is missing or not a JSON number.
	ErrInvalidSensorFormat = errors.New("invalid sensor data format")

	// ErrInvalidSafetyValue is returned when active is missing or not a
	// JSON boolean.
	ErrInvalidSafetyValue = errors.New("invalid safety value")
)

// Payload is a decoded JSON request body.
type Payload map[string]interface{}

// SensorReport is a validated sensor node reading.
type SensorReport struct {
	Temperature float64
	Humidity    float64
	Moisture    float64
}

// ManualUpdate holds the operator overrides present in a request.
type ManualUpdate struct {
	PH      *float64
	Weather *float64
}

// PumpCommand holds the recognised pump fields of a request.
type PumpCommand struct {
	State *domain.PumpState
	Mode  *domain.PumpMode
}

// Validator turns request payloads into typed commands.
type Validator struct{}

// NewValidator creates a new payload validator
func NewValidator() *Validator {
	return &Validator{}
}

// SensorReport requires all three readings to be numbers.
func (v *Validator) SensorReport(p Payload) (SensorReport, error) {
	temperature, ok1 := number(p, "temperature")
	humidity, ok2 := number(p, "humidity")
	moisture, ok3 := number(p, "moisture")
	if !ok1 || !ok2 || !ok3 {
		return SensorReport{}, ErrInvalidSensorFormat
	}

	return SensorReport{
		Temperature: temperature,
		Humidity:    humidity,
		Moisture:    moisture,
	}, nil
}

// ManualUpdate keeps numeric fields and silently drops everything else.
func (v *Validator) ManualUpdate(p Payload) ManualUpdate {
	var u ManualUpdate
	if ph, ok := number(p, "ph"); ok {
		u.PH = &ph
	}
	if weather, ok := number(p, "weather"); ok {
		u.Weather = &weather
	}
	return u
}

// PumpCommand keeps state and mode only when they match an allowed value
// exactly.
func (v *Validator) PumpCommand(p Payload) PumpCommand {
	var cmd PumpCommand
	if raw, ok := p["state"].(string); ok {
		if st, ok := domain.ParsePumpState(raw); ok {
			cmd.State = &st
		}
	}
	if raw, ok := p["mode"].(string); ok {
		if mode, ok := domain.ParsePumpMode(raw); ok {
			cmd.Mode = &mode
		}
	}
	return cmd
}

// Safety requires active to be a boolean.
func (v *Validator) Safety(p Payload) (bool, error) {
	active, ok := p["active"].(bool)
	if !ok {
		return false, ErrInvalidSafetyValue
	}
	return active, nil
}

// number reports a field only when it decoded as a JSON number.
func number(p Payload, key string) (float64, bool) {
	switch n := p[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
