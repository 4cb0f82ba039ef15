// Package magic deals with the magic numbers packed into the first Len bytes
// of a structure's memory layout, which is how we tell at runtime what kind
// of value (if any) lives at an address.
package magic

import (
	"hallway/src/lib/arena"
)

// Len is the size of every tag.
const Len = 4

// Tag is the fixed byte signature of one structural type.
type Tag [Len]byte

// Tagged is implemented by types whose layout begins with their Tag.
type Tagged interface {
	Magic() Tag
}

// Check reads Len bytes at addr and compares them to tag. Memory that
// cannot be read is not a match: it is treated as untyped, same as garbage.
func Check(mem arena.Reader, addr arena.Addr, tag Tag) bool {
	raw, err := mem.Read(addr, Len)
	if err != nil {
		return false
	}
	for i, b := range tag {
		if raw[i] != b {
			return false
		}
	}
	return true
}

// Stamp writes tag at addr.
func Stamp(mem arena.Writer, addr arena.Addr, tag Tag) error {
	return mem.Write(addr, tag[:])
}

// Is reports whether t carries tag in its leading bytes. Values held in Go
// memory rather than in the arena use this instead of Check.
func Is(t Tagged, tag Tag) bool {
	return t.Magic() == tag
}
