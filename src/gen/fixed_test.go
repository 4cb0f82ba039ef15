package gen

import (
	"errors"
	"testing"

	"hallway/src/lib/arena"
	"hallway/src/lib/magic"
)

func TestFixedArrayBasics(t *testing.T) {
	a := NewFixedArray[int](3)
	if a.Len() != 0 || a.Cap() != 3 {
		t.Fatalf("bad initial state: len %d cap %d", a.Len(), a.Cap())
	}
	if a.Magic() != (magic.Tag{}) {
		t.Errorf("a new array starts with a zeroed tag")
	}
	if _, ok := a.At(0); ok {
		t.Errorf("slot 0 is not valid before anything is appended")
	}
	a.Append(10)
	a.Append(20)
	if a.Len() != 2 {
		t.Errorf("expected len 2 but got %d", a.Len())
	}
	if v, ok := a.At(1); !ok || v != 20 {
		t.Errorf("expected 20 at slot 1 but got %d (%v)", v, ok)
	}
	if _, ok := a.At(2); ok {
		t.Errorf("slot 2 is past len and must not be readable")
	}
	a.Append(30)
	if !a.Full() {
		t.Errorf("array should be full at capacity")
	}
	s := a.Slice()
	if len(s) != 3 || s[0] != 10 || s[2] != 30 {
		t.Errorf("unexpected valid prefix %v", s)
	}
}

func TestFixedArrayZeroCapacity(t *testing.T) {
	a := NewFixedArray[string](0)
	if !a.Full() {
		t.Errorf("zero capacity array is always full")
	}
	if len(a.Slice()) != 0 {
		t.Errorf("zero capacity array has no valid slots")
	}
}

func TestFixedStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "hello", "12345678"} {
		f := FixedStringFrom(s, 8)
		if f.String() != s {
			t.Errorf("expected %q but got %q", s, f.String())
		}
		if f.Len() != len(s) {
			t.Errorf("expected stored length %d but got %d", len(s), f.Len())
		}
	}
}

func TestFixedStringTruncates(t *testing.T) {
	f := FixedStringFrom("hello world", 4)
	if f.String() != "hell" {
		t.Errorf("expected hell but got %q", f.String())
	}
	if f.Len() != 4 {
		t.Errorf("expected stored length 4 but got %d", f.Len())
	}
	// byte truncation: the two byte é gets cut in half
	g := FixedStringFrom("caé", 3)
	if g.String() != "ca\xc3" {
		t.Errorf("expected truncation on the byte boundary but got %q", g.String())
	}
}

func TestFixedStringStripsOnlyNUL(t *testing.T) {
	f := FixedStringFrom("hi  ", 8)
	if f.String() != "hi  " {
		t.Errorf("trailing spaces are not padding, expected them kept: %q", f.String())
	}
}

func TestFixedStringAppendByte(t *testing.T) {
	f := NewFixedString(2)
	if !f.AppendByte('o') || !f.AppendByte('k') {
		t.Fatalf("append into an empty buffer should succeed")
	}
	if f.AppendByte('!') {
		t.Errorf("append into a full buffer should refuse")
	}
	if f.String() != "ok" || f.Len() != 2 {
		t.Errorf("expected ok/2 but got %q/%d", f.String(), f.Len())
	}
}

func TestFixedStringInArena(t *testing.T) {
	mem := arena.New(0x100, 0x40)
	addr := arena.Addr(0x108)
	if magic.Check(mem, addr, StringMagic) {
		t.Fatalf("zero filled memory must not look like a string")
	}
	if _, err := LoadFixedString(mem, addr, 8); !errors.Is(err, ErrNotTagged) {
		t.Errorf("expected ErrNotTagged loading from zeroes but got %v", err)
	}
	if err := FixedStringFrom("hello", 8).StoreAt(mem, addr); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if !magic.Check(mem, addr, StringMagic) {
		t.Errorf("expected string tag right after storing a string")
	}
	back, err := LoadFixedString(mem, addr, 8)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if back.String() != "hello" || back.Len() != 5 {
		t.Errorf("expected hello/5 but got %q/%d", back.String(), back.Len())
	}
}

func TestStr(t *testing.T) {
	b := Borrow("static context")
	if b.Kind() != Borrowed || b.String() != "static context" {
		t.Errorf("borrowed string not returned as is: %v %q", b.Kind(), b.String())
	}
	o := Own(FixedStringFrom("owned context", 64))
	if o.Kind() != Owned || o.String() != "owned context" {
		t.Errorf("owned string not returned: %v %q", o.Kind(), o.String())
	}
	var untagged FixedString
	if Own(untagged).String() != "" {
		t.Errorf("an owned empty string renders empty")
	}
	if !magic.Is(Own(untagged).owned, StringMagic) {
		t.Errorf("Own must stamp the tag")
	}
}
