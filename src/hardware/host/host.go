// Package host connects the simulated serial port to something on the
// host: a real serial device, or the terminal the tool was started from.
package host

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	tty "github.com/mattn/go-tty"
	"golang.org/x/term"
)

// Port is a byte stream to the outside. It satisfies console.Handle, and
// io.Writer so it can be the far end of a UART.
type Port struct {
	r   *bufio.Reader
	w   io.Writer
	raw bool

	closeOnce sync.Once
	restore   func() error
	closer    io.Closer
}

// NewPort wraps an already open reader and writer.
func NewPort(r io.Reader, w io.Writer) *Port {
	return &Port{r: bufio.NewReader(r), w: w}
}

// OpenTTY opens the serial device at path in raw mode.
func OpenTTY(path string) (*Port, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	reset := t.MustRaw()
	return &Port{
		r:   bufio.NewReader(t.Input()),
		w:   t.Output(),
		raw: true,
		restore: func() error {
			reset()
			return nil
		},
		closer: t,
	}, nil
}

// OpenStdio uses stdin and stdout. A terminal on stdin is put in raw mode
// so bytes arrive as they are typed; anything else (a pipe, a file) is
// read as is.
func OpenStdio() (*Port, error) {
	p := NewPort(os.Stdin, os.Stdout)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return p, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode on stdin: %w", err)
	}
	p.raw = true
	p.restore = func() error { return term.Restore(fd, old) }
	return p, nil
}

// Raw is true when the other end is a terminal in raw mode, which wants
// CR LF line endings.
func (p *Port) Raw() bool {
	return p.raw
}

func (p *Port) ReadByte() (byte, error) {
	return p.r.ReadByte()
}

func (p *Port) WriteByte(b byte) error {
	_, err := p.w.Write([]byte{b})
	return err
}

func (p *Port) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// Close puts the terminal back the way it was and closes the device.
// Calling it again does nothing.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.restore != nil {
			err = p.restore()
		}
		if p.closer != nil {
			if cerr := p.closer.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
