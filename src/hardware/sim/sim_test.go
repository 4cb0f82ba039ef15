package sim

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hallway/src/lib/arena"
	"hallway/src/lib/shared"
	"hallway/src/lib/upbeat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestUARTReceiveInOrder(t *testing.T) {
	u := NewUART(io.Discard, UARTConfig{})
	u.Receive([]byte("hi"))
	require.NoError(t, u.Close())
	for _, want := range []byte("hi") {
		b, err := u.ReadByte()
		require.NoError(t, err)
		assert.Equal(t, want, b)
	}
	_, err := u.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestUARTReadBlocksUntilLoaded(t *testing.T) {
	u := NewUART(io.Discard, UARTConfig{})
	got := make(chan byte)
	go func() {
		b, _ := u.ReadByte()
		got <- b
	}()
	select {
	case <-got:
		t.Fatal("read returned with nothing received")
	case <-time.After(20 * time.Millisecond):
	}
	u.LoadRx('z')
	assert.Equal(t, byte('z'), <-got)
}

func TestUARTOverrun(t *testing.T) {
	u := NewUART(io.Discard, UARTConfig{})
	for i := 0; i < RxBufMax+5; i++ {
		u.LoadRx(byte(i))
	}
	assert.Equal(t, uint64(5), u.Overruns())
	b, err := u.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0), b, "the oldest bytes are kept")
}

func TestUARTTransmit(t *testing.T) {
	var out bytes.Buffer
	u := NewUART(&out, UARTConfig{CRLF: true})
	for _, c := range []byte("a\nb") {
		require.NoError(t, u.WriteByte(c))
	}
	assert.Equal(t, "a\r\nb", out.String())

	out.Reset()
	plain := NewUART(&out, UARTConfig{})
	require.NoError(t, plain.WriteByte('\n'))
	assert.Equal(t, "\n", out.String())
}

func TestUARTDumpRx(t *testing.T) {
	var out bytes.Buffer
	u := NewUART(&out, UARTConfig{})
	u.Receive([]byte("echo"))
	n, err := u.DumpRxBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), n)
	assert.Equal(t, "echo", out.String())
	require.NoError(t, u.Close())
	_, err = u.ReadByte()
	assert.ErrorIs(t, err, io.EOF, "nothing is left in the ring")
}

func TestPump(t *testing.T) {
	u := NewUART(io.Discard, UARTConfig{})
	require.NoError(t, u.Pump(bytes.NewReader([]byte("ok"))))
	a, _ := u.ReadByte()
	b, _ := u.ReadByte()
	_, err := u.ReadByte()
	assert.Equal(t, "ok", string([]byte{a, b}))
	assert.ErrorIs(t, err, io.EOF, "pump hangs up when the source ends")
}

func TestBoardPeripherals(t *testing.T) {
	b, err := NewBoard(Config{}, io.Discard, upbeat.NewController())
	require.NoError(t, err)
	p, err := b.Take()
	require.NoError(t, err)
	assert.Same(t, b.UART(), p.Serial)
	_, err = b.Take()
	assert.ErrorIs(t, err, ErrTaken)
	assert.Same(t, b.UART(), b.StealSerial(), "stealing always works")
}

func TestBoardMemory(t *testing.T) {
	b, err := NewBoard(Config{}, io.Discard, upbeat.NewController())
	require.NoError(t, err)
	assert.True(t, b.Memory().Contains(0, RAMSize))
	assert.False(t, b.Memory().Contains(arena.Addr(RAMSize), 1))
	addr, err := b.RAM().Reserve(16)
	require.NoError(t, err)
	assert.Equal(t, SRAMStart, addr, "reservations start past the I/O space")
}

func TestBoardLEDAndDelay(t *testing.T) {
	b, err := NewBoard(Config{}, io.Discard, upbeat.NewController())
	require.NoError(t, err)
	var slept []time.Duration
	b.sleep = func(d time.Duration) { slept = append(slept, d) }
	b.ToggleLED()
	assert.True(t, b.LED())
	b.DelayMs(500)
	b.ToggleLED()
	assert.False(t, b.LED())
	assert.Equal(t, uint64(2), b.Toggles())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, slept)
}

func TestTimerStarvedWhileMasked(t *testing.T) {
	irq := upbeat.NewController()
	b, err := NewBoard(Config{}, io.Discard, irq)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- b.RunTimer(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return irq.Pending() > 0 }, time.Second, time.Millisecond)
	assert.Zero(t, b.Ticks(), "masked ticks only latch")
	irq.Enable()
	require.Eventually(t, func() bool { return b.Ticks() > 0 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestUARTBaudRate(t *testing.T) {
	assert.Equal(t, shared.BaudRate, NewUART(io.Discard, UARTConfig{}).BaudRate())
	assert.Equal(t, 9600, NewUART(io.Discard, UARTConfig{BaudRate: 9600}).BaudRate())
}
