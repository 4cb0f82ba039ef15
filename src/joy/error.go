package joy

import (
	"errors"
	"fmt"

	"hallway/src/gen"
	"hallway/src/lib/arena"
	"hallway/src/lib/magic"
)

// ErrorMagic identifies a KernelError laid out in memory.
var ErrorMagic = magic.Tag{'e', 'r', 'r', '!'}

// ContextLen is the room an owned error context gets.
const ContextLen = 64

// ErrorKind is what went wrong, broadly. New kinds go on the end.
type ErrorKind uint8

const (
	Unknown ErrorKind = iota
	Stdio
)

func (k ErrorKind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Stdio:
		return "stdio"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// KernelError is a kind plus some text saying where. Two KernelErrors are
// the same error, for errors.Is, when their kinds match.
type KernelError struct {
	magic   magic.Tag
	Kind    ErrorKind
	Context gen.Str
}

// NewError is a tagged error of the given kind.
func NewError(kind ErrorKind, context gen.Str) *KernelError {
	return &KernelError{magic: ErrorMagic, Kind: kind, Context: context}
}

// Errorf builds the context into an owned string, truncated to ContextLen.
func Errorf(kind ErrorKind, format string, a ...interface{}) *KernelError {
	return NewError(kind, gen.Own(gen.FixedStringFrom(fmt.Sprintf(format, a...), ContextLen)))
}

// ErrStdio matches any Stdio error.
var ErrStdio = NewError(Stdio, gen.Borrow("stdio"))

func (e *KernelError) Magic() magic.Tag {
	return e.magic
}

func (e *KernelError) Error() string {
	ctx := e.Context.String()
	if ctx == "" {
		return e.Kind.String() + " error"
	}
	return e.Kind.String() + " error: " + ctx
}

func (e *KernelError) Is(target error) bool {
	var other *KernelError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// ErrorLayoutSize is how much arena a stored KernelError takes: tag, kind
// byte, then the context as a FixedString.
func ErrorLayoutSize() uint32 {
	return magic.Len + 1 + gen.LayoutSize(ContextLen)
}

// StoreAt writes e into mem at addr. The context is always stored owned,
// a borrowed context being copied (and maybe truncated) on the way.
func (e *KernelError) StoreAt(mem arena.Writer, addr arena.Addr) error {
	if err := magic.Stamp(mem, addr, e.magic); err != nil {
		return err
	}
	if err := mem.WriteU8(addr.Add(magic.Len), uint8(e.Kind)); err != nil {
		return err
	}
	ctx := gen.FixedStringFrom(e.Context.String(), ContextLen)
	return ctx.StoreAt(mem, addr.Add(magic.Len+1))
}

// LoadError reads back an error stored with StoreAt. Anything at addr
// without the error tag is gen.ErrNotTagged.
func LoadError(mem arena.Reader, addr arena.Addr) (*KernelError, error) {
	if !magic.Check(mem, addr, ErrorMagic) {
		return nil, gen.ErrNotTagged
	}
	kind, err := mem.ReadU8(addr.Add(magic.Len))
	if err != nil {
		return nil, err
	}
	ctx, err := gen.LoadFixedString(mem, addr.Add(magic.Len+1), ContextLen)
	if err != nil {
		return nil, err
	}
	return NewError(ErrorKind(kind), gen.Own(ctx)), nil
}
