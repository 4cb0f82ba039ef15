// Package fatal is where the kernel goes when it cannot go on. It grabs the
// serial port back from whoever had it, says what happened, lets you look
// around with the monitor in a debug build, and then blinks the LED until
// someone pulls the plug.
package fatal

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"hallway/src/console"
	"hallway/src/debug/hallway"
	"hallway/src/lib/arena"
	"hallway/src/lib/shared"
)

// Board is the hardware the panic path needs.
type Board interface {
	// StealSerial hands over the serial port even if someone else holds
	// it; they may have died half way through using it.
	StealSerial() console.Handle
	ToggleLED()
	DelayMs(ms uint32)
	Memory() arena.Memory
}

// Location is where the panic happened. Column is zero when unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

// Info describes a panic. Either part may be missing.
type Info struct {
	Message    string
	HasMessage bool
	Location   *Location
}

// rxFlusher is a serial port that can throw away what was typed ahead.
type rxFlusher interface {
	DumpRxBuffer() (uint32, error)
}

var lineMax atomic.Int32

// SetLineMax bounds the lines the panic path's monitor reads. Zero or less
// means shared.MaxLine.
func SetLineMax(n int) {
	lineMax.Store(int32(n))
}

// Bootstrap runs the panic sequence on board. It does not return.
func Bootstrap(board Board, info Info) {
	serial := board.StealSerial()
	console.Set(serial)

	Logger().Error("kernel panic",
		zap.Bool("has_message", info.HasMessage),
		zap.String("message", info.Message))

	if info.HasMessage {
		console.Printf("PANICKED! %s\n", info.Message)
	}
	if loc := info.Location; loc != nil {
		console.Printf("PANICKED! %s:%d:%d\n", loc.File, loc.Line, loc.Column)
	}

	if shared.Debug {
		if f, ok := serial.(rxFlusher); ok {
			if n, err := f.DumpRxBuffer(); err != nil || n > 0 {
				Logger().Debug("dropped typed-ahead input", zap.Uint32("bytes", n), zap.Error(err))
			}
		}
		console.Println("Enter to start Hallway Monitor...")
		if _, err := console.ReadLine(1); err != nil {
			Logger().Warn("no console input, starting monitor anyway", zap.Error(err))
		}
		monitor(board)
	} else {
		console.Println("Run with debug assertions to start Hallway Monitor.")
	}

	console.Println("Entering busy loop.")
	for {
		board.ToggleLED()
		board.DelayMs(shared.BlinkMs)
	}
}

// monitor runs one monitor session. A fault inside the session (a jump to
// nowhere, say) is reported and ends the session; it cannot leave the
// panic path.
func monitor(board Board) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		msg := describe(r)
		Logger().Error("fault inside the monitor", zap.String("message", msg))
		console.Printf("PANICKED! %s\n", msg)
	}()
	hallway.New(
		hallway.WithMemory(board.Memory()),
		hallway.WithLineMax(int(lineMax.Load())),
	).Interactive()
}

func describe(r interface{}) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Catch turns a Go panic into Bootstrap. Defer it first thing in the
// kernel's entry point:
//
//	defer fatal.Catch(board)
func Catch(board Board) {
	r := recover()
	if r == nil {
		return
	}
	Bootstrap(board, Info{Message: describe(r), HasMessage: true, Location: panicLocation()})
}

// panicLocation finds the frame that panicked by walking past the runtime,
// this package, and trust.Fatalf.
func panicLocation() *Location {
	pc := make([]uintptr, 32)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	for {
		f, more := frames.Next()
		if !skipFrame(f.Function) {
			return &Location{File: f.File, Line: f.Line}
		}
		if !more {
			return nil
		}
	}
}

func skipFrame(fn string) bool {
	return strings.HasPrefix(fn, "runtime.") ||
		strings.HasPrefix(fn, "hallway/src/joy/fatal.") ||
		strings.HasPrefix(fn, "hallway/src/lib/trust.")
}
