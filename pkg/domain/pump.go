package domain

// PumpState is the ON/OFF state of the pump relay.
type PumpState string

const (
	PumpOn  PumpState = "ON"
	PumpOff PumpState = "OFF"
)

// ParsePumpState accepts only the exact strings "ON" and "OFF".
func ParsePumpState(v string) (PumpState, bool) {
	switch PumpState(v) {
	case PumpOn, PumpOff:
		return PumpState(v), true
	}
	return "", false
}

// PumpMode says whether the pump is driven automatically or by an operator.
type PumpMode string

const (
	PumpModeAuto   PumpMode = "AUTO"
	PumpModeManual PumpMode = "MANUAL"
)

// ParsePumpMode accepts only the exact strings "AUTO" and "MANUAL".
func ParsePumpMode(v string) (PumpMode, bool) {
	switch PumpMode(v) {
	case PumpModeAuto, PumpModeManual:
		return PumpMode(v), true
	}
	return "", false
}

// EffectivePumpState applies the safety override at read time. While safety
// is active the pump is reported OFF whatever the stored state is.
func EffectivePumpState(stored PumpState, safetyActive bool) PumpState {
	if safetyActive {
		return PumpOff
	}
	return stored
}
