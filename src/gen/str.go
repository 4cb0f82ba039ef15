package gen

import (
	"hallway/src/lib/magic"
)

// StrKind says which of the two representations a Str holds.
type StrKind uint8

const (
	Borrowed StrKind = iota
	Owned
)

func (k StrKind) String() string {
	switch k {
	case Borrowed:
		return "borrowed"
	case Owned:
		return "owned"
	}
	return "unknown"
}

// Str is either a borrowed string or an owned FixedString. The kind is
// carried explicitly; an owned value always carries StringMagic.
type Str struct {
	kind     StrKind
	borrowed string
	owned    FixedString
}

// Borrow wraps s directly.
func Borrow(s string) Str {
	return Str{kind: Borrowed, borrowed: s}
}

// Own wraps f, stamping its tag if it was built without one.
func Own(f FixedString) Str {
	f.magic = StringMagic
	return Str{kind: Owned, owned: f}
}

func (s Str) Kind() StrKind {
	return s.kind
}

// String dispatches on the kind.
func (s Str) String() string {
	if s.kind == Owned && magic.Is(s.owned, StringMagic) {
		return s.owned.String()
	}
	return s.borrowed
}
