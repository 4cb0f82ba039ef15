package gen

import (
	"hallway/src/lib/magic"
)

// ArrayMagic identifies a FixedArray.
var ArrayMagic = magic.Tag{0xff, 'a', 'r', 'y'}

// FixedArray is an array with a fixed capacity set at construction time
// and a len that says how much of it is valid. Slots [0,len) are valid,
// slots [len,cap) are not to be read. The backing store is allocated once
// and never grows.
//
// Always update len when inner changes; Append is the only way in.
type FixedArray[T any] struct {
	magic magic.Tag
	len   int
	inner []T
}

// NewFixedArray returns an empty array with room for capacity elements.
// Like its layout on the metal, the tag starts out zeroed and no element
// is initialized.
func NewFixedArray[T any](capacity int) FixedArray[T] {
	if capacity < 0 {
		capacity = 0
	}
	return FixedArray[T]{inner: make([]T, capacity)}
}

func (f *FixedArray[T]) Magic() magic.Tag {
	return f.magic
}

// Len is the number of valid slots.
func (f *FixedArray[T]) Len() int {
	return f.len
}

// Cap is the fixed capacity.
func (f *FixedArray[T]) Cap() int {
	return len(f.inner)
}

// Full is true when another Append would not fit.
func (f *FixedArray[T]) Full() bool {
	return f.len >= len(f.inner)
}

// Append writes v into slot len and then bumps len. There is no capacity
// check here beyond Go's own: callers look at Full first.
func (f *FixedArray[T]) Append(v T) {
	f.inner[f.len] = v
	f.len++
}

// At returns the element at i if i is a valid slot.
func (f *FixedArray[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= f.len {
		return zero, false
	}
	return f.inner[i], true
}

// Slice is the valid prefix. It shares storage with the array.
func (f *FixedArray[T]) Slice() []T {
	return f.inner[:f.len]
}
