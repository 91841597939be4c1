// Package domain holds the data model shared by the controller and the API
// layers: sensor readings, pump state and mode, the safety flag and the
// state-change events published after every mutation.
package domain
