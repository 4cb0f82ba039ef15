package hallway

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hallway/src/console"
	"hallway/src/debug/markers"
	"hallway/src/lib/arena"
	"hallway/src/lib/upbeat"
)

type fakeSerial struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (f *fakeSerial) ReadByte() (byte, error) { return f.in.ReadByte() }
func (f *fakeSerial) WriteByte(b byte) error   { return f.out.WriteByte(b) }

type rig struct {
	mon    *Monitor
	mem    *arena.RAM
	irq    *upbeat.Controller
	serial *fakeSerial
	jumps  []arena.Addr
}

func newRig(t *testing.T, input string, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		mem:    arena.New(0, 0x200),
		irq:    upbeat.NewController(),
		serial: &fakeSerial{in: bytes.NewReader([]byte(input))},
	}
	con := console.NewCell(r.irq)
	con.Set(r.serial)
	reg := markers.New(2)
	reg.Register("a", 0x30)
	reg.Register("b", 0x40)
	r.mon = New(append([]Option{
		WithMemory(r.mem),
		WithConsole(con),
		WithInterrupts(r.irq),
		WithMarkers(reg),
		WithTrampoline(func(addr arena.Addr) { r.jumps = append(r.jumps, addr) }),
	}, opts...)...)
	return r
}

// run executes each line and returns what the last one printed.
func (r *rig) run(lines ...string) string {
	for _, l := range lines {
		r.serial.out.Reset()
		r.mon.Execute(l)
	}
	return r.serial.out.String()
}

func (r *rig) position(t *testing.T) arena.Addr {
	t.Helper()
	pos, ok := r.mon.Position()
	require.True(t, ok, "cursor should be set")
	return pos
}

func TestGotoAdvanceBacktrack(t *testing.T) {
	r := newRig(t, "")
	r.run("g0x64", "a0x0a")
	assert.Equal(t, arena.Addr(0x6e), r.position(t))
	r.run("b0x0a")
	assert.Equal(t, arena.Addr(0x64), r.position(t))
	r.run("a")
	assert.Equal(t, arena.Addr(0x65), r.position(t), "a defaults to one")
	r.run("bzz")
	assert.Equal(t, arena.Addr(0x64), r.position(t), "an unparsable count also means one")
}

func TestBadGotoKeepsCursor(t *testing.T) {
	r := newRig(t, "")
	r.run("gzz")
	_, ok := r.mon.Position()
	assert.False(t, ok)
	r.run("g40", "g")
	assert.Equal(t, arena.Addr(0x40), r.position(t))
}

func TestWriteRestoresCursor(t *testing.T) {
	for _, cmd := range []string{"w0x41,0x42", "w41,42"} {
		r := newRig(t, "")
		r.run("g0x10", cmd)
		assert.Equal(t, arena.Addr(0x10), r.position(t), cmd)
		out := r.run("r0x01")
		assert.Equal(t, "0x41 0x42 0x00 0x00 0x00 0x00 0x00 0x00 <-- @0x18\n", out, cmd)
	}
}

func TestWriteSkipsBadTokens(t *testing.T) {
	r := newRig(t, "")
	r.run("g0x10", "wzz,43")
	b0, _ := r.mem.ReadU8(0x10)
	b1, _ := r.mem.ReadU8(0x11)
	assert.Equal(t, uint8(0), b0, "a bad token writes nothing")
	assert.Equal(t, uint8(0x43), b1, "but the cursor still steps past it")
	assert.Equal(t, arena.Addr(0x10), r.position(t))
}

func TestWriteFault(t *testing.T) {
	r := newRig(t, "")
	out := r.run("g0x1ff", "w41,42")
	assert.Equal(t, "Fault writing 0x200\n", out)
	b, _ := r.mem.ReadU8(0x1ff)
	assert.Equal(t, uint8(0x41), b)
	assert.Equal(t, arena.Addr(0x1ff), r.position(t))
}

func TestCopyWrite(t *testing.T) {
	r := newRig(t, "")
	r.run("g0x20", "cw0x7f,0x03")
	assert.Equal(t, arena.Addr(0x20), r.position(t))
	got, err := r.mem.Read(0x20, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7f, 0x7f, 0x7f, 0x00}, got)

	r.run("g0x30", "cw55")
	got, err = r.mem.Read(0x30, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x00}, got, "count defaults to one")
}

func TestNoCursorIsNoop(t *testing.T) {
	r := newRig(t, "")
	assert.Empty(t, r.run("r0x04"))
	r.run("a0x10", "b0x01", "w41", "cw41,04", "j")
	_, ok := r.mon.Position()
	assert.False(t, ok)
	assert.Empty(t, r.jumps)
	got, err := r.mem.Read(0, 0x200)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 0x200), got)
}

func TestReadFault(t *testing.T) {
	r := newRig(t, "")
	out := r.run("g0x1fc", "r")
	assert.Equal(t, "0x00 0x00 0x00 0x00 0x?? \nFault reading 0x200\n", out)
}

func TestMarkers(t *testing.T) {
	r := newRig(t, "")
	assert.Equal(t, "0 --> a\n1 --> b\n", r.run("lm"))
	assert.Equal(t, "Pointing to marker `b`!\n", r.run("m1"))
	assert.Equal(t, arena.Addr(0x40), r.position(t))
	assert.Equal(t, "Marker not found\nHINT: Use `lm` to list markers\n", r.run("m0x05"))
	assert.Equal(t, arena.Addr(0x40), r.position(t))
	r.run("m")
	assert.Equal(t, arena.Addr(0x30), r.position(t), "m defaults to the first marker")
}

func TestJump(t *testing.T) {
	r := newRig(t, "")
	r.run("g0x1234", "j")
	assert.Equal(t, []arena.Addr{0x1234}, r.jumps)
}

func TestInvalid(t *testing.T) {
	r := newRig(t, "")
	assert.Equal(t, "invalid input `zzz`\nsee `help`\n", r.run("  zzz  "))
	assert.Equal(t, "invalid input ``\nsee `help`\n", r.run(""))
	assert.Equal(t, helpMessage+"\n", r.run("help"))
}

func TestInterruptCommands(t *testing.T) {
	r := newRig(t, "")
	assert.False(t, r.mon.Execute("ena"), "ena is not exit")
	assert.False(t, r.irq.Masked())
	r.mon.Execute("cli")
	assert.True(t, r.irq.Masked())
	assert.True(t, r.mon.Execute("exit"))
	assert.True(t, r.mon.Execute("e"))
}

func TestInteractive(t *testing.T) {
	r := newRig(t, "g0x64\nexit\n")
	r.irq.Enable()
	ticks := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.mon.Interactive()
	}()
	<-done
	r.irq.Raise(func() { ticks++ })

	out := r.serial.out.String()
	assert.True(t, strings.HasPrefix(out, "Welcome to Hallway Monitor!\n"+helpMessage+"\n"))
	assert.Contains(t, out, noCursor+"\n> g0x64\nPosition: 0x64\n> exit\n")
	assert.False(t, r.irq.Masked(), "leaving the monitor unmasks interrupts")
	assert.Equal(t, 1, ticks)
}

func TestInteractiveEndsOnEOF(t *testing.T) {
	r := newRig(t, "g0x10")
	r.mon.Interactive()
	assert.Equal(t, arena.Addr(0x10), r.position(t), "the partial line still runs")
	assert.False(t, r.irq.Masked())
}

func TestLineMaxBoundsInput(t *testing.T) {
	r := newRig(t, "g0x1234\nexit\n", WithLineMax(4))
	r.mon.Interactive()
	out := r.serial.out.String()
	assert.Contains(t, out, "> g0x1\nPosition: 0x1\n", "only four bytes make the line")
	assert.Contains(t, out, "invalid input `234`", "the rest is the next line")
	assert.Equal(t, arena.Addr(0x1), r.position(t))
}
