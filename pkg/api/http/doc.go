// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Sensor node reports and the combined sensor view
//   - Manual pH and weather overrides
//   - Pump control and the safety override
//   - Health checks
//   - Prometheus metrics
//
// Every route allows cross-origin requests from any origin.
package http
