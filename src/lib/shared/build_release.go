//go:build release

package shared

const (
	Debug      = false
	Trace      = false
	NumMarkers = 0
)
