// Package arena is the only place in hallway that deals in raw addresses.
// It stands in for the microcontroller's physical RAM: a flat byte region
// starting at some base address. Every access is range checked and a bad
// address comes back as a *FaultError, never as a Go panic. Everything above
// this package gets addresses handed to it and goes through Memory.
package arena

import (
	"encoding/binary"
)

// Addr is a raw address in the simulated address space. Arithmetic on it
// wraps, the same way pointer arithmetic does on the real part.
type Addr uint32

// Add returns a+n, wrapping.
func (a Addr) Add(n uint32) Addr {
	return a + Addr(n)
}

// Sub returns a-n, wrapping.
func (a Addr) Sub(n uint32) Addr {
	return a - Addr(n)
}

// Reader is the read half of Memory.
type Reader interface {
	Read(addr Addr, length uint32) ([]byte, error)
	ReadU8(addr Addr) (uint8, error)
	ReadU16(addr Addr) (uint16, error)
	ReadU32(addr Addr) (uint32, error)
}

// Writer is the write half of Memory.
type Writer interface {
	Write(addr Addr, data []byte) error
	WriteU8(addr Addr, value uint8) error
	WriteU16(addr Addr, value uint16) error
	WriteU32(addr Addr, value uint32) error
}

// Memory is byte addressable memory with validated access.
type Memory interface {
	Reader
	Writer
	Contains(addr Addr, length uint32) bool
}

// RAM is a contiguous region of simulated memory. It is not safe for
// concurrent use; like the real part it belongs to a single execution
// context and callers serialize through critical sections.
type RAM struct {
	base Addr
	data []byte
	next Addr // bump pointer for Reserve
}

// New allocates size bytes of zeroed memory that answers at
// [base, base+size).
func New(base Addr, size uint32) *RAM {
	return &RAM{
		base: base,
		data: make([]byte, size),
		next: base,
	}
}

// Base is the first valid address.
func (r *RAM) Base() Addr { return r.base }

// Size is the number of bytes in the region.
func (r *RAM) Size() uint32 { return uint32(len(r.data)) }

// End is one past the last valid address.
func (r *RAM) End() Addr { return r.base.Add(r.Size()) }

// Contains reports whether [addr, addr+length) lies inside the region.
func (r *RAM) Contains(addr Addr, length uint32) bool {
	_, ok := r.offset(addr, length)
	return ok
}

func (r *RAM) offset(addr Addr, length uint32) (uint32, bool) {
	if addr < r.base {
		return 0, false
	}
	off := uint64(addr - r.base)
	if off+uint64(length) > uint64(len(r.data)) {
		return 0, false
	}
	return uint32(off), true
}

// Read returns a copy of length bytes starting at addr.
func (r *RAM) Read(addr Addr, length uint32) ([]byte, error) {
	off, ok := r.offset(addr, length)
	if !ok {
		return nil, fault(OpRead, addr, length)
	}
	out := make([]byte, length)
	copy(out, r.data[off:off+length])
	return out, nil
}

// Write copies data into memory starting at addr. Nothing is written if
// any part of the range is out of bounds.
func (r *RAM) Write(addr Addr, data []byte) error {
	off, ok := r.offset(addr, uint32(len(data)))
	if !ok {
		return fault(OpWrite, addr, uint32(len(data)))
	}
	copy(r.data[off:], data)
	return nil
}

func (r *RAM) ReadU8(addr Addr) (uint8, error) {
	off, ok := r.offset(addr, 1)
	if !ok {
		return 0, fault(OpRead, addr, 1)
	}
	return r.data[off], nil
}

func (r *RAM) WriteU8(addr Addr, value uint8) error {
	off, ok := r.offset(addr, 1)
	if !ok {
		return fault(OpWrite, addr, 1)
	}
	r.data[off] = value
	return nil
}

// ReadU16 reads a little endian uint16 (the AVR byte order).
func (r *RAM) ReadU16(addr Addr) (uint16, error) {
	off, ok := r.offset(addr, 2)
	if !ok {
		return 0, fault(OpRead, addr, 2)
	}
	return binary.LittleEndian.Uint16(r.data[off:]), nil
}

func (r *RAM) WriteU16(addr Addr, value uint16) error {
	off, ok := r.offset(addr, 2)
	if !ok {
		return fault(OpWrite, addr, 2)
	}
	binary.LittleEndian.PutUint16(r.data[off:], value)
	return nil
}

func (r *RAM) ReadU32(addr Addr) (uint32, error) {
	off, ok := r.offset(addr, 4)
	if !ok {
		return 0, fault(OpRead, addr, 4)
	}
	return binary.LittleEndian.Uint32(r.data[off:]), nil
}

func (r *RAM) WriteU32(addr Addr, value uint32) error {
	off, ok := r.offset(addr, 4)
	if !ok {
		return fault(OpWrite, addr, 4)
	}
	binary.LittleEndian.PutUint32(r.data[off:], value)
	return nil
}

// Fill sets length bytes starting at addr to b.
func (r *RAM) Fill(addr Addr, length uint32, b byte) error {
	off, ok := r.offset(addr, length)
	if !ok {
		return fault(OpWrite, addr, length)
	}
	region := r.data[off : off+length]
	for i := range region {
		region[i] = b
	}
	return nil
}

// Reserve hands out the next size bytes of the region, the way the linker
// would lay out a static. Reservations are never returned.
func (r *RAM) Reserve(size uint32) (Addr, error) {
	addr := r.next
	if !r.Contains(addr, size) {
		return 0, fault(OpReserve, addr, size)
	}
	r.next = addr.Add(size)
	return addr, nil
}

// SkipTo moves the reservation pointer forward to addr, leaving everything
// below it (register file, I/O space) out of future reservations.
func (r *RAM) SkipTo(addr Addr) error {
	if addr < r.next || !r.Contains(addr, 0) {
		return fault(OpReserve, addr, 0)
	}
	r.next = addr
	return nil
}
