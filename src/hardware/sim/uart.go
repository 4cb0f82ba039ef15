package sim

import (
	"io"
	"sync"

	"go.uber.org/zap"

	"hallway/src/lib/shared"
)

// RxBufMax is the mask for the receive ring; it holds RxBufMax bytes.
const RxBufMax = 0xfff

// UARTConfig is the zero value for a plain 8 bit link at shared.BaudRate.
// CRLF turns every LF written into CR LF, which a raw terminal on the
// other end wants.
type UARTConfig struct {
	BaudRate int
	CRLF     bool
}

// UART is the serial port. The receive side is a ring buffer filled by
// whatever stands in for the wire (LoadRx) and drained by ReadByte, which
// blocks the way polling the data-ready bit does. The transmit side goes
// straight to an io.Writer.
type UART struct {
	mu       sync.Mutex
	ready    *sync.Cond
	rxhead   int
	rxtail   int
	rxbuffer []uint8
	overruns uint64
	closed   bool

	tx   io.Writer
	conf UARTConfig
}

// NewUART returns a UART that transmits to tx.
func NewUART(tx io.Writer, conf UARTConfig) *UART {
	u := &UART{
		rxbuffer: make([]uint8, RxBufMax+1),
		tx:       tx,
		conf:     conf,
	}
	u.ready = sync.NewCond(&u.mu)
	return u
}

// WriteByte sends c over the wire.
func (u *UART) WriteByte(c byte) error {
	if u.conf.CRLF && c == '\n' {
		_, err := u.tx.Write([]byte{'\r', '\n'})
		return err
	}
	_, err := u.tx.Write([]byte{c})
	return err
}

// BaudRate is the configured line speed. Bytes move as fast as the host
// lets them; the rate is what the kernel reports to the other end.
func (u *UART) BaudRate() int {
	if u.conf.BaudRate <= 0 {
		return shared.BaudRate
	}
	return u.conf.BaudRate
}

// ReadByte blocks until a byte has been received. Once the UART is closed
// and the ring is drained it returns io.EOF.
func (u *UART) ReadByte() (byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for u.emptyRx() {
		if u.closed {
			return 0, io.EOF
		}
		u.ready.Wait()
	}
	return u.nextRx(), nil
}

// LoadRx puts a byte in the ring as if it came in from the other side. A
// full ring drops the byte and counts an overrun, like the hardware.
func (u *UART) LoadRx(b uint8) {
	u.mu.Lock()
	defer u.mu.Unlock()
	head := (u.rxhead + 1) & RxBufMax
	if head == u.rxtail {
		u.overruns++
		Logger().Warn("uart receive overrun", zap.Uint64("overruns", u.overruns))
		return
	}
	u.rxbuffer[u.rxhead] = b
	u.rxhead = head
	u.ready.Signal()
}

// Receive loads every byte of p.
func (u *UART) Receive(p []byte) {
	for _, b := range p {
		u.LoadRx(b)
	}
}

func (u *UART) emptyRx() bool {
	return u.rxtail == u.rxhead
}

func (u *UART) nextRx() uint8 {
	result := u.rxbuffer[u.rxtail]
	u.rxtail = (u.rxtail + 1) & RxBufMax
	return result
}

// DumpRxBuffer pushes the entire receive ring back out over the wire and
// leaves it empty. The panic path uses it to throw away typed-ahead input
// while still showing what was thrown away.
func (u *UART) DumpRxBuffer() (uint32, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	moved := uint32(0)
	for !u.emptyRx() {
		if err := u.WriteByte(u.nextRx()); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// Overruns is how many received bytes were dropped.
func (u *UART) Overruns() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.overruns
}

// Close hangs up the receive side. Bytes already in the ring can still be
// read.
func (u *UART) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	u.ready.Broadcast()
	return nil
}

// Pump copies bytes from src into the ring until src fails, then closes
// the UART. io.EOF from src is a clean hangup and is not returned.
func (u *UART) Pump(src io.ByteReader) error {
	defer u.Close()
	for {
		b, err := src.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		u.LoadRx(b)
	}
}
