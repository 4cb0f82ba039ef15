// Package shared holds the build-wide constants.
package shared

// BaudRate of the console serial link.
const BaudRate = 57_600

// MaxLine is the longest line the monitor will read.
const MaxLine = 96

// BlinkMs is the half period of the failure LED.
const BlinkMs = 500
