package gen

import (
	"bytes"
	"errors"

	"hallway/src/lib/arena"
	"hallway/src/lib/magic"
)

// StringMagic identifies a FixedString.
var StringMagic = magic.Tag{0xff, 's', 't', 'r'}

// ErrNotTagged is returned when a load finds something other than the
// expected tag at an address.
var ErrNotTagged = errors.New("no tag at address")

// FixedString is a zero padded string with a fixed capacity. The contents
// are meant to be UTF-8 up to the stored length.
type FixedString struct {
	magic magic.Tag
	inner []byte
	len   int // not guaranteed to track inner if inner is changed behind our back
}

// NewFixedString is an empty, tagged string with room for capacity bytes.
func NewFixedString(capacity int) FixedString {
	if capacity < 0 {
		capacity = 0
	}
	return FixedString{magic: StringMagic, inner: make([]byte, capacity)}
}

// FixedStringFrom copies as much of s as fits into a new string of the
// given capacity. It truncates on bytes, not runes, so a multi-byte
// character can be cut in half. It never fails.
func FixedStringFrom(s string, capacity int) FixedString {
	f := NewFixedString(capacity)
	n := copy(f.inner, s)
	f.len = n
	return f
}

func (f FixedString) Magic() magic.Tag {
	return f.magic
}

// String is the buffer with trailing NULs stripped (only NULs: any other
// padding is kept).
func (f FixedString) String() string {
	return string(bytes.TrimRight(f.inner, "\x00"))
}

// Len is the stored length.
func (f FixedString) Len() int {
	return f.len
}

// Cap is the size of the buffer.
func (f FixedString) Cap() int {
	return len(f.inner)
}

// Full is true when AppendByte would refuse.
func (f FixedString) Full() bool {
	return f.len >= len(f.inner)
}

// AppendByte stores b at the stored length and bumps it. It returns false,
// changing nothing, when the buffer is full.
func (f *FixedString) AppendByte(b byte) bool {
	if f.Full() {
		return false
	}
	f.inner[f.len] = b
	f.len++
	return true
}

// LayoutSize is the number of arena bytes a string of the given capacity
// occupies: tag, buffer, then the stored length as a uint32.
func LayoutSize(capacity int) uint32 {
	return magic.Len + uint32(capacity) + 4
}

// StoreAt lays the string out in mem at addr.
func (f FixedString) StoreAt(mem arena.Writer, addr arena.Addr) error {
	if err := magic.Stamp(mem, addr, f.magic); err != nil {
		return err
	}
	if err := mem.Write(addr.Add(magic.Len), f.inner); err != nil {
		return err
	}
	return mem.WriteU32(addr.Add(magic.Len+uint32(len(f.inner))), uint32(f.len))
}

// LoadFixedString reads back a string of the given capacity stored at
// addr. The tag is checked first; anything else at addr is ErrNotTagged.
func LoadFixedString(mem arena.Reader, addr arena.Addr, capacity int) (FixedString, error) {
	if !magic.Check(mem, addr, StringMagic) {
		return FixedString{}, ErrNotTagged
	}
	inner, err := mem.Read(addr.Add(magic.Len), uint32(capacity))
	if err != nil {
		return FixedString{}, err
	}
	n, err := mem.ReadU32(addr.Add(magic.Len + uint32(capacity)))
	if err != nil {
		return FixedString{}, err
	}
	if int(n) > capacity {
		n = uint32(capacity)
	}
	return FixedString{magic: StringMagic, inner: inner, len: int(n)}, nil
}
