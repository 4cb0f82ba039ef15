package joy

import (
	"sync"

	"hallway/src/lib/arena"
)

// StackLen is the size of the kernel's dedicated stack.
const StackLen = 512

// Stack pointer registers, at their addresses in data space.
const (
	SPL arena.Addr = 0x5D
	SPH arena.Addr = 0x5E
)

// StackFill is what a fresh stack is filled with, so that you can see in
// the monitor how deep it has ever been.
const StackFill = 0xff

// StackRegion is the part of memory that can hand out a stack.
type StackRegion interface {
	Reserve(size uint32) (arena.Addr, error)
	Fill(addr arena.Addr, length uint32, b byte) error
}

// ReserveStack sets aside StackLen bytes filled with StackFill and returns
// the lowest address and the top (the last byte, where a downward
// growing stack starts).
func ReserveStack(mem StackRegion) (bottom, top arena.Addr, err error) {
	bottom, err = mem.Reserve(StackLen)
	if err != nil {
		return 0, 0, err
	}
	if err = mem.Fill(bottom, StackLen, StackFill); err != nil {
		return 0, 0, err
	}
	return bottom, bottom.Add(StackLen - 1), nil
}

// StackSwitcher moves the stack pointer. The stack can be switched exactly
// once per memory, however many switchers there are; everything on the old
// stack is gone afterwards, so there is nothing to go back to.
type StackSwitcher struct {
	mem arena.Memory
}

// switched holds every memory whose stack has been moved.
var switched sync.Map

// NewStackSwitcher returns a switcher for the registers in mem.
func NewStackSwitcher(mem arena.Memory) *StackSwitcher {
	return &StackSwitcher{mem: mem}
}

// JumpToStack points the stack pointer at addr: the low byte goes to SPL,
// then the high byte to SPH. A second call panics.
func (s *StackSwitcher) JumpToStack(addr arena.Addr) error {
	if _, done := switched.LoadOrStore(s.mem, struct{}{}); done {
		panic("joy: JumpToStack called twice")
	}
	if err := s.mem.WriteU8(SPL, uint8(addr)); err != nil {
		return err
	}
	return s.mem.WriteU8(SPH, uint8(addr>>8))
}

// StackPointer reads SPH:SPL.
func StackPointer(mem arena.Reader) (arena.Addr, error) {
	lo, err := mem.ReadU8(SPL)
	if err != nil {
		return 0, err
	}
	hi, err := mem.ReadU8(SPH)
	if err != nil {
		return 0, err
	}
	return arena.Addr(hi)<<8 | arena.Addr(lo), nil
}
