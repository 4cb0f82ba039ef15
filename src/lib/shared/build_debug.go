//go:build !release

package shared

// Debug builds get the monitor and a marker table.
const (
	Debug      = true
	Trace      = true
	NumMarkers = 16
)
