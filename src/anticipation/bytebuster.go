package anticipation

import (
	"go.uber.org/zap"

	"hallway/src/lib/arena"
)

// ByteBuster is what the decoder calls to actually write bytes into
// memory or set key values.
type ByteBuster interface {
	Write(addr uint32, value uint8) bool
	SetBaseAddr(addr uint32)
	SetEntryPoint(addr uint32)
	BaseAddress() uint32
	EntryPoint() uint32
	EntryPointIsSet() bool
}

// ArenaByteBuster writes an image into simulated memory.
type ArenaByteBuster struct {
	mem        arena.Writer
	baseAdd    uint32
	entryPoint uint32
	entrySet   bool
	written    uint32
}

func NewArenaByteBuster(mem arena.Writer) *ArenaByteBuster {
	return &ArenaByteBuster{mem: mem}
}

func (a *ArenaByteBuster) SetEntryPoint(addr uint32) {
	a.entryPoint = addr
	a.entrySet = true
}

func (a *ArenaByteBuster) SetBaseAddr(addr uint32) {
	a.baseAdd = addr
}

func (a *ArenaByteBuster) BaseAddress() uint32 {
	return a.baseAdd
}

func (a *ArenaByteBuster) EntryPoint() uint32 {
	return a.entryPoint
}

func (a *ArenaByteBuster) EntryPointIsSet() bool {
	return a.entrySet
}

// Write stores value, refusing addresses outside the arena.
func (a *ArenaByteBuster) Write(addr uint32, value uint8) bool {
	if err := a.mem.WriteU8(arena.Addr(addr), value); err != nil {
		Logger().Warn("image byte outside memory", zap.Uint32("addr", addr))
		return false
	}
	a.written++
	return true
}

// Written is the number of bytes stored so far.
func (a *ArenaByteBuster) Written() uint32 {
	return a.written
}
