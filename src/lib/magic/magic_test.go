package magic

import (
	"testing"

	"hallway/src/lib/arena"
)

var testTag = Tag{0xff, 't', 's', 't'}

func TestStampThenCheck(t *testing.T) {
	mem := arena.New(0x200, 0x20)
	if Check(mem, 0x204, testTag) {
		t.Errorf("zero filled memory should not carry a tag")
	}
	if err := Stamp(mem, 0x204, testTag); err != nil {
		t.Fatalf("stamp failed: %v", err)
	}
	if !Check(mem, 0x204, testTag) {
		t.Errorf("expected tag to be present after stamp")
	}
	if Check(mem, 0x205, testTag) {
		t.Errorf("tag is only valid at the address it was stamped")
	}
}

func TestCheckPartialMatch(t *testing.T) {
	mem := arena.New(0, 8)
	_ = mem.Write(0, []byte{0xff, 't', 's', 'x'})
	if Check(mem, 0, testTag) {
		t.Errorf("a single mismatching byte must fail the check")
	}
}

func TestCheckOutsideMemory(t *testing.T) {
	mem := arena.New(0, 8)
	if Check(mem, 6, testTag) {
		t.Errorf("a tag that would run past the end of memory is not a match")
	}
	if err := Stamp(mem, 6, testTag); err == nil {
		t.Errorf("expected a fault stamping past the end")
	}
}
