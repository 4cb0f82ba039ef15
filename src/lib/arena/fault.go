package arena

import (
	"errors"
	"fmt"
)

// ErrFault is wrapped by every *FaultError.
var ErrFault = errors.New("memory fault")

// Op names the kind of access that faulted.
type Op string

const (
	OpRead    Op = "read"
	OpWrite   Op = "write"
	OpReserve Op = "reserve"
)

// FaultError describes an access outside the arena.
type FaultError struct {
	Op     Op
	Addr   Addr
	Length uint32
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s of %d bytes at 0x%x: %v", e.Op, e.Length, uint32(e.Addr), ErrFault)
}

func (e *FaultError) Unwrap() error {
	return ErrFault
}

func fault(op Op, addr Addr, length uint32) *FaultError {
	return &FaultError{Op: op, Addr: addr, Length: length}
}
