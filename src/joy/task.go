package joy

import (
	"hallway/src/gen"
	"hallway/src/lib/arena"
)

// CwdLen is the longest working directory a task can have.
const CwdLen = 32

// Niceness is a task's scheduling priority. Nothing schedules yet.
type Niceness uint8

// Task is a task's stack and how long it has been running.
type Task struct {
	StackTop   arena.Addr // highest stack element
	StackStart arena.Addr
	StackEnd   arena.Addr

	StartRuntime uint32 // micros
}

// NewTask is a task owning the stack [bottom, top].
func NewTask(bottom, top arena.Addr, now uint32) Task {
	return Task{StackTop: top, StackStart: bottom, StackEnd: top, StartRuntime: now}
}

// KTaskState is what the kernel keeps about a task.
type KTaskState struct {
	Niceness Niceness
	ParentID uint32
	ID       uint32
	Cwd      gen.FixedString
}

// NewKTaskState is the state of a task with no parent.
func NewKTaskState(id uint32, cwd string) KTaskState {
	return KTaskState{ID: id, Cwd: gen.FixedStringFrom(cwd, CwdLen)}
}
