package trampoline

import (
	"errors"
	"testing"
)

type halted struct{}

func TestJumpRunsEntryThenHalts(t *testing.T) {
	prev := haltFn
	haltFn = func() { panic(halted{}) }
	defer func() { haltFn = prev }()

	ran := false
	Register(0x1234, func() { ran = true })
	func() {
		defer func() {
			if _, ok := recover().(halted); !ok {
				t.Errorf("expected jump to end in halt")
			}
		}()
		Jump(0x1234)
		t.Errorf("jump returned")
	}()
	if !ran {
		t.Errorf("entry point did not run")
	}
}

func TestJumpToGarbageFaults(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		var jf *JumpFault
		if !ok || !errors.As(err, &jf) {
			t.Fatalf("expected a JumpFault panic but got %v", r)
		}
		if jf.Addr != 0xdead {
			t.Errorf("fault has wrong address %x", jf.Addr)
		}
	}()
	Jump(0xdead)
}
