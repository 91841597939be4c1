// Package controller owns the irrigation state: the latest sensor reading,
// the operator overrides, the pump state and mode, and the safety flag.
//
// All operations run under one mutex, so every caller sees a consistent
// snapshot. After a successful mutation the controller:
//   - logs a labeled snapshot of the affected state
//   - updates the metrics collector
//   - publishes a state-change event on the event bus
//
// Validation failures return ErrInvalidSensorFormat or ErrInvalidSafetyValue
// and leave the state untouched.
package controller
