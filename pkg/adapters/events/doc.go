// Package events provides event bus implementations.
//
// Implementations:
//   - memory: in-process fan-out used by the live state stream
package events
