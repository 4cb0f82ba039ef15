// Package hallway is the Hallway Monitor, a tiny line-oriented debugger
// for poking at memory from the serial console. It is what the panic
// path drops into in debug builds, and it can be started by hand too.
//
// The monitor keeps one piece of state, the cursor. Every command that
// touches memory does so at the cursor, and every such command is a no-op
// while the cursor is unset.
package hallway

import (
	"strings"

	"go.uber.org/zap"

	"hallway/src/console"
	"hallway/src/debug/markers"
	"hallway/src/lib/arena"
	"hallway/src/lib/shared"
	"hallway/src/lib/trampoline"
	"hallway/src/lib/upbeat"
)

const helpMessage = `Commands:
help/h - <--
exit/e - <--
cli - [cl]ear [i]nterrupts
ena - [ena]ble interrupts
r<0xLEN> - [r]ead memory
w<0xBYTE>(,<0xBYTE>...) - [w]rite bytes
cw<0xBYTE>,0xLEN - [c]opy [w]rite
j - [j]ump to a function pointer
a<0xLEN> - [a]dvance pointer
b<0xLEN> - [b]acktrack pointer
lm - [l]ist [m]arkers
m<0xINDEX> - point to [m]arker
g<0xPOS> - [g]oto position`

const (
	welcome  = "Welcome to Hallway Monitor!"
	prompt   = "> "
	noCursor = "No position specified.\nHINT: Point to a marker first!\nHINT: See `help`."
)

// Trampoline transfers control to addr. The real one does not return.
type Trampoline func(addr arena.Addr)

// Monitor is one monitor session's worth of state.
type Monitor struct {
	mem     arena.Memory
	con     *console.Cell
	irq     *upbeat.Controller
	markers *markers.Registry
	jump    Trampoline
	lineMax int

	pos    arena.Addr
	hasPos bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithMemory is the memory the monitor reads and writes. Without it every
// access faults.
func WithMemory(mem arena.Memory) Option {
	return func(m *Monitor) { m.mem = mem }
}

// WithConsole talks over c instead of console.Default.
func WithConsole(c *console.Cell) Option {
	return func(m *Monitor) { m.con = c }
}

// WithInterrupts uses irq instead of upbeat.CPU.
func WithInterrupts(irq *upbeat.Controller) Option {
	return func(m *Monitor) { m.irq = irq }
}

// WithMarkers looks markers up in r instead of markers.Markers.
func WithMarkers(r *markers.Registry) Option {
	return func(m *Monitor) { m.markers = r }
}

// WithTrampoline replaces trampoline.Jump for the j command.
func WithTrampoline(t Trampoline) Option {
	return func(m *Monitor) { m.jump = t }
}

// WithLineMax bounds an input line to n bytes instead of shared.MaxLine.
// Whatever is typed past the limit is read as the next line.
func WithLineMax(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.lineMax = n
		}
	}
}

// New returns a monitor with no cursor.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		mem:     arena.New(0, 0),
		con:     console.Default,
		irq:     upbeat.CPU,
		markers: markers.Markers,
		jump:    trampoline.Jump,
		lineMax: shared.MaxLine,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Position is the cursor, if there is one.
func (m *Monitor) Position() (arena.Addr, bool) {
	return m.pos, m.hasPos
}

// Interactive runs the command loop until exit. Interrupts stay masked for
// the whole session unless someone types ena, and are unmasked on the way
// out no matter what state they were in on the way in.
//
// A console that stops producing input (the host side went away) ends the
// session as if exit had been typed.
func (m *Monitor) Interactive() {
	m.irq.Disable()
	defer m.irq.Enable()

	m.con.Println(welcome)
	m.help()
	for {
		m.status()
		m.con.Print(prompt)
		line, err := m.con.ReadLine(m.lineMax)
		if err != nil {
			Logger().Debug("console closed, leaving monitor", zap.Error(err))
			if line.Len() > 0 {
				m.Execute(line.String())
			}
			return
		}
		if m.Execute(line.String()) {
			return
		}
	}
}

// Execute runs one command line and reports whether it was exit.
func (m *Monitor) Execute(line string) bool {
	input := strings.TrimSpace(line)
	Logger().Debug("command", zap.String("input", input))

	switch {
	case input == "":
		m.invalid(input)
	case strings.HasPrefix(input, "h"):
		m.help()
	// ena before e, or it could never be reached
	case strings.HasPrefix(input, "ena"):
		m.irq.Enable()
	case strings.HasPrefix(input, "e"):
		return true
	case strings.HasPrefix(input, "cli"):
		m.irq.Disable()
	case strings.HasPrefix(input, "r"):
		m.readMemory(parseField(input, 1, 8, 8))
	case strings.HasPrefix(input, "w"):
		m.writeTokens(input)
	case strings.HasPrefix(input, "cw"):
		m.copyWrite(input)
	case strings.HasPrefix(input, "j"):
		if m.hasPos {
			Logger().Info("jumping", zap.Uint32("addr", uint32(m.pos)))
			m.jump(m.pos)
		}
	case strings.HasPrefix(input, "a"):
		m.advance(parseField(input, 1, 8, 1))
	case strings.HasPrefix(input, "b"):
		m.backtrack(parseField(input, 1, 8, 1))
	case strings.HasPrefix(input, "lm"):
		m.listMarkers()
	case strings.HasPrefix(input, "m"):
		m.marker(int(parseField(input, 1, 8, 0)))
	case strings.HasPrefix(input, "g"):
		if v, ok := parseToken(field(input, 1, 8)); ok {
			m.pos, m.hasPos = arena.Addr(v), true
		}
	default:
		m.invalid(input)
	}
	return false
}

func (m *Monitor) help() {
	m.con.Println(helpMessage)
}

func (m *Monitor) invalid(input string) {
	m.con.Printf("invalid input `%s`\nsee `help`\n", input)
}

func (m *Monitor) status() {
	if !m.hasPos {
		m.con.Println(noCursor)
		return
	}
	m.con.Printf("Position: 0x%x\n", uint32(m.pos))
}

// readMemory prints groups of 8 bytes from the cursor, each line ending
// with the address of the byte after it. It stops at the first byte it
// cannot read.
func (m *Monitor) readMemory(groups uint32) {
	if !m.hasPos {
		return
	}
	total := uint64(groups) * 8
	line := make([]byte, 0, 8*5+16)
	for offset := uint64(0); offset < total; offset++ {
		addr := m.pos.Add(uint32(offset))
		b, err := m.mem.ReadU8(addr)
		if err != nil {
			line = append(line, "0x?? \n"...)
			m.con.Write(line)
			m.con.Printf("Fault reading 0x%x\n", uint32(addr))
			return
		}
		line = append(line, "0x"...)
		line = upbeat.AppendHexByte(line, b)
		line = append(line, ' ')
		if (offset+1)%8 == 0 {
			line = append(line, "<-- @0x"...)
			line = upbeat.AppendHex32(line, uint32(addr.Add(1)))
			line = append(line, '\n')
			m.con.Write(line)
			line = line[:0]
		}
	}
}

// writeMemory stores v at the cursor, clamped to a byte.
func (m *Monitor) writeMemory(v uint32) bool {
	if !m.hasPos {
		return true
	}
	if err := m.mem.WriteU8(m.pos, saturate(v)); err != nil {
		m.con.Printf("Fault writing 0x%x\n", uint32(m.pos))
		return false
	}
	return true
}

// writeTokens handles w. Each token is two hex digits, or four when the
// second character is the x of a 0x. Tokens are separated by one
// character. The cursor steps once per token, written or not, and is put
// back afterwards.
func (m *Monitor) writeTokens(input string) {
	pos, hasPos := m.pos, m.hasPos
	defer func() { m.pos, m.hasPos = pos, hasPos }()

	offset := 0
	for offset < len(input) {
		offset++
		n := byteToken(input, offset)
		if v, ok := parseToken(field(input, offset, n)); ok {
			if !m.writeMemory(v) {
				return
			}
		}
		m.advance(1)
		offset += n
	}
}

// copyWrite handles cw<byte>,<count>.
func (m *Monitor) copyWrite(input string) {
	n := byteToken(input, 2)
	v, ok := parseToken(field(input, 2, n))
	if !ok {
		return
	}
	count := parseField(input, n+3, 4, 1)

	pos, hasPos := m.pos, m.hasPos
	defer func() { m.pos, m.hasPos = pos, hasPos }()
	for i := uint32(0); i < count; i++ {
		if !m.writeMemory(v) {
			return
		}
		m.advance(1)
	}
}

func (m *Monitor) advance(by uint32) {
	if m.hasPos {
		m.pos = m.pos.Add(by)
	}
}

func (m *Monitor) backtrack(by uint32) {
	if m.hasPos {
		m.pos = m.pos.Sub(by)
	}
}

func (m *Monitor) listMarkers() {
	for _, l := range m.markers.List() {
		m.con.Printf("%d --> %s\n", l.Index, l.Name)
	}
}

func (m *Monitor) marker(index int) {
	e, ok := m.markers.Resolve(index)
	if !ok {
		m.con.Println("Marker not found\nHINT: Use `lm` to list markers")
		return
	}
	m.con.Printf("Pointing to marker `%s`!\n", e.Name)
	m.pos, m.hasPos = e.Addr, true
}
