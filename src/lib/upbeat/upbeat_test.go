package upbeat

import (
	"bytes"
	"strings"
	"testing"

	"hallway/src/lib/arena"
)

func TestStartsMasked(t *testing.T) {
	c := NewController()
	if !c.Masked() {
		t.Errorf("interrupts should be masked at reset")
	}
}

func TestRaiseWhileMaskedIsLatched(t *testing.T) {
	c := NewController()
	count := 0
	c.Raise(func() { count++ })
	c.Raise(func() { count++ })
	if count != 0 {
		t.Errorf("handlers must not run while masked, ran %d", count)
	}
	if c.Pending() != 2 {
		t.Errorf("expected 2 pending but got %d", c.Pending())
	}
	c.Enable()
	if count != 2 {
		t.Errorf("expected latched handlers to run on enable, ran %d", count)
	}
	if c.Pending() != 0 {
		t.Errorf("expected nothing pending after enable")
	}
	c.Raise(func() { count++ })
	if count != 3 {
		t.Errorf("unmasked raise should run immediately")
	}
}

func TestHandlersRunMasked(t *testing.T) {
	c := NewController()
	c.Enable()
	var inside bool
	c.Raise(func() { inside = c.Masked() })
	if !inside {
		t.Errorf("a handler should see interrupts masked")
	}
	if c.Masked() {
		t.Errorf("mask should be restored after the handler")
	}
}

func TestLatchOverflow(t *testing.T) {
	c := NewController()
	for i := 0; i < MaxPending+3; i++ {
		c.Raise(func() {})
	}
	if c.Pending() != MaxPending {
		t.Errorf("expected %d pending but got %d", MaxPending, c.Pending())
	}
	if c.Dropped() != 3 {
		t.Errorf("expected 3 dropped but got %d", c.Dropped())
	}
}

func TestFreeRestoresOnPanic(t *testing.T) {
	c := NewController()
	c.Enable()
	func() {
		defer func() { _ = recover() }()
		c.Free(func() {
			if !c.Masked() {
				t.Errorf("free should mask")
			}
			panic("boom")
		})
	}()
	if c.Masked() {
		t.Errorf("free must restore the unmasked state even on panic")
	}
}

func TestFreeNests(t *testing.T) {
	c := NewController()
	c.Enable()
	ran := false
	c.Free(func() {
		c.Free(func() {})
		if !c.Masked() {
			t.Errorf("inner free must not unmask the outer critical section")
		}
		c.Raise(func() { ran = true })
		if ran {
			t.Errorf("raise inside a critical section must wait")
		}
	})
	if !ran {
		t.Errorf("latched handler should run once the critical section ends")
	}
}

func TestHexHelpers(t *testing.T) {
	if s := string(AppendHexByte(nil, 0x0a)); s != "0a" {
		t.Errorf("expected 0a but got %s", s)
	}
	if s := string(AppendHex32(nil, 0x6e)); s != "6e" {
		t.Errorf("expected 6e but got %s", s)
	}
	if s := string(AppendHex32(nil, 0)); s != "0" {
		t.Errorf("expected 0 but got %s", s)
	}
	if s := string(AppendHex32Padded(nil, 0x1f)); s != "0000001f" {
		t.Errorf("expected 0000001f but got %s", s)
	}
}

func TestDump(t *testing.T) {
	mem := arena.New(0x100, 0x10)
	_ = mem.Write(0x100, []byte("Hi!"))
	var buf bytes.Buffer
	if err := Dump(&buf, mem, 0x100, 0x14); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines but got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "00000100: 48 69 21 00") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "Hi!.............") {
		t.Errorf("unexpected text column %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "00000110: ?? ?? ?? ??") {
		t.Errorf("bytes past the end should show as ?? but got %q", lines[1])
	}
}
