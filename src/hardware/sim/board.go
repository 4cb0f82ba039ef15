// Package sim is a simulated board: the RAM, the serial port, the LED and
// a timer, with enough of the real part's behaviour for the kernel core to
// run hosted.
package sim

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"hallway/src/console"
	"hallway/src/lib/arena"
	"hallway/src/lib/upbeat"
)

// Data space of the part we pretend to be: registers and I/O below
// SRAMStart, then 8K of SRAM.
const (
	RAMBase   arena.Addr = 0
	RAMSize   uint32     = 0x2200
	SRAMStart arena.Addr = 0x200
)

// TickPeriod is how often the timer interrupt fires by default.
const TickPeriod = time.Millisecond

// ErrTaken is returned by Take when the peripherals are already owned.
var ErrTaken = errors.New("peripherals already taken")

// Config sizes a Board. The zero value is the real part.
type Config struct {
	RAMBase arena.Addr
	RAMSize uint32
	UART    UARTConfig
}

// Peripherals are the devices that have exactly one owner.
type Peripherals struct {
	Serial *UART
}

// Board is the whole simulated machine.
type Board struct {
	mem  *arena.RAM
	uart *UART
	irq  *upbeat.Controller

	mu    sync.Mutex
	taken bool
	led   bool

	toggles atomic.Uint64
	ticks   atomic.Uint64

	sleep func(time.Duration)
}

// NewBoard builds a board whose serial port transmits to tx and whose
// timer raises interrupts on irq.
func NewBoard(conf Config, tx io.Writer, irq *upbeat.Controller) (*Board, error) {
	if conf.RAMSize == 0 {
		conf.RAMBase, conf.RAMSize = RAMBase, RAMSize
	}
	mem := arena.New(conf.RAMBase, conf.RAMSize)
	if mem.Contains(SRAMStart, 0) {
		if err := mem.SkipTo(SRAMStart); err != nil {
			return nil, err
		}
	}
	return &Board{
		mem:   mem,
		uart:  NewUART(tx, conf.UART),
		irq:   irq,
		sleep: time.Sleep,
	}, nil
}

// Take hands out the peripherals once.
func (b *Board) Take() (*Peripherals, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.taken {
		return nil, ErrTaken
	}
	b.taken = true
	return &Peripherals{Serial: b.uart}, nil
}

// Steal hands out the peripherals whether or not someone already has them.
func (b *Board) Steal() *Peripherals {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taken = true
	return &Peripherals{Serial: b.uart}
}

// StealSerial is the serial port, stolen.
func (b *Board) StealSerial() console.Handle {
	Logger().Info("serial port stolen")
	return b.Steal().Serial
}

// UART is the serial port without taking it, for the host side of the
// wire.
func (b *Board) UART() *UART {
	return b.uart
}

// Memory is the board's RAM.
func (b *Board) Memory() arena.Memory {
	return b.mem
}

// RAM is the board's RAM with reservation.
func (b *Board) RAM() *arena.RAM {
	return b.mem
}

// ToggleLED flips the on-board LED.
func (b *Board) ToggleLED() {
	b.mu.Lock()
	b.led = !b.led
	on := b.led
	b.mu.Unlock()
	n := b.toggles.Add(1)
	Logger().Debug("led", zap.Bool("on", on), zap.Uint64("toggles", n))
}

// LED is whether the LED is lit.
func (b *Board) LED() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.led
}

// Toggles counts ToggleLED calls.
func (b *Board) Toggles() uint64 {
	return b.toggles.Load()
}

// DelayMs busy waits, or what passes for it here.
func (b *Board) DelayMs(ms uint32) {
	b.sleep(time.Duration(ms) * time.Millisecond)
}

// Ticks counts timer interrupts that have been serviced.
func (b *Board) Ticks() uint64 {
	return b.ticks.Load()
}

// RunTimer raises a timer interrupt every period until ctx is done. While
// interrupts are masked the ticks pile up in the controller like any other
// interrupt.
func (b *Board) RunTimer(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = TickPeriod
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			b.irq.Raise(func() { b.ticks.Add(1) })
		}
	}
}
