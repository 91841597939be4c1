// Package websocket provides real-time state streaming via WebSocket.
//
// Clients connect to /api/ws. The first frame is the current snapshot;
// every later frame is the state after one mutation.
package websocket
