// Package trampoline transfers control to a raw address. On the metal that
// is a plain indirect call; hosted, code addresses have to be registered
// as entry points first, and jumping anywhere else faults.
package trampoline

import (
	"fmt"
	"sync"
	"time"

	"hallway/src/lib/arena"
)

// EntryPoint is a parameterless function that is not expected to return.
type EntryPoint func()

// JumpFault is the panic value for a jump to something that is not code.
type JumpFault struct {
	Addr arena.Addr
}

func (j *JumpFault) Error() string {
	return fmt.Sprintf("jump to non-executable address 0x%x", uint32(j.Addr))
}

var (
	mu      sync.Mutex
	entries = map[arena.Addr]EntryPoint{}

	// haltFn is what happens if an entry point returns anyway. Tests
	// replace it.
	haltFn = func() {
		for {
			time.Sleep(time.Hour)
		}
	}
)

// Register makes fn reachable by jumping to addr.
func Register(addr arena.Addr, fn EntryPoint) {
	mu.Lock()
	defer mu.Unlock()
	entries[addr] = fn
}

// Lookup returns the entry point at addr.
func Lookup(addr arena.Addr) (EntryPoint, bool) {
	mu.Lock()
	defer mu.Unlock()
	fn, ok := entries[addr]
	return fn, ok
}

// Jump transfers control to addr and does not come back. A jump to an
// unregistered address panics with a *JumpFault, the hosted version of
// executing garbage.
func Jump(addr arena.Addr) {
	fn, ok := Lookup(addr)
	if !ok {
		panic(&JumpFault{Addr: addr})
	}
	fn()
	haltFn()
}
