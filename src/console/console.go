// Package console is the kernel's one serial console. The handle lives in a
// Cell, and every touch of it happens inside a critical section so that an
// interrupt handler can never land in the middle of someone else's write.
package console

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"hallway/src/gen"
	"hallway/src/lib/upbeat"
)

// Handle is the byte stream on the other end of the serial link.
type Handle interface {
	io.ByteReader
	io.ByteWriter
}

// ErrNoConsole is returned by ReadLine when no handle has been set.
var ErrNoConsole = errors.New("no console")

// Line terminators.
const (
	CR  = '\r'
	LF  = '\n'
	EOT = 0x04
	NUL = 0x00
)

// Cell holds at most one Handle.
type Cell struct {
	irq *upbeat.Controller
	mu  sync.Mutex
	h   Handle
}

// Default is the console everyone shares.
var Default = NewCell(upbeat.CPU)

// NewCell is an empty cell whose critical sections mask irq.
func NewCell(irq *upbeat.Controller) *Cell {
	return &Cell{irq: irq}
}

// Set replaces whatever handle was there.
func (c *Cell) Set(h Handle) {
	c.irq.Free(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.h = h
	})
}

// With calls f with the handle inside a critical section and reports
// whether there was a handle to call it with. f must not use the cell
// again; the cell is held for the duration.
func (c *Cell) With(f func(h Handle)) bool {
	found := false
	c.irq.Free(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.h == nil {
			return
		}
		found = true
		f(c.h)
	})
	return found
}

// Write sends p in one critical section. Without a handle the bytes go
// nowhere and Write still reports success, printing is best effort.
func (c *Cell) Write(p []byte) (int, error) {
	var err error
	n := 0
	c.With(func(h Handle) {
		for _, b := range p {
			if err = h.WriteByte(b); err != nil {
				return
			}
			n++
		}
	})
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// Print writes s.
func (c *Cell) Print(s string) {
	_, _ = io.WriteString(c, s)
}

// Println writes s and a newline in the same critical section.
func (c *Cell) Println(s string) {
	_, _ = io.WriteString(c, s+"\n")
}

// Printf formats and writes.
func (c *Cell) Printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(c, format, a...)
}

// ReadLine blocks until a line of at most max bytes arrives. A line ends
// at CR, LF, EOT or NUL, none of which are kept. The whole read happens in
// one critical section: nothing interrupt driven runs until the line is
// in. That is fine for the debug paths that use this and nothing else.
//
// A read error from the handle also ends the line; the bytes read so far
// come back along with the error. The line is echoed once it is complete.
func (c *Cell) ReadLine(max int) (gen.FixedString, error) {
	line := gen.NewFixedString(max)
	var err error
	if !c.With(func(h Handle) {
		for !line.Full() {
			var b byte
			b, err = h.ReadByte()
			if err != nil {
				return
			}
			if b == CR || b == LF || b == EOT || b == NUL {
				return
			}
			line.AppendByte(b)
		}
	}) {
		return line, ErrNoConsole
	}
	c.Println(line.String())
	return line, err
}

// Set installs h as the Default console.
func Set(h Handle) {
	Default.Set(h)
}

// With runs f against the Default console.
func With(f func(h Handle)) bool {
	return Default.With(f)
}

// ReadLine reads a line from the Default console.
func ReadLine(max int) (gen.FixedString, error) {
	return Default.ReadLine(max)
}

// Print writes s to the Default console.
func Print(s string) {
	Default.Print(s)
}

// Println writes s and a newline to the Default console.
func Println(s string) {
	Default.Println(s)
}

// Printf formats to the Default console.
func Printf(format string, a ...interface{}) {
	Default.Printf(format, a...)
}
