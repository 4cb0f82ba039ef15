// Package markers is a table of named addresses worth looking at, so the
// monitor can jump straight to them.
package markers

import (
	"sync"

	"hallway/src/gen"
	"hallway/src/lib/arena"
	"hallway/src/lib/shared"
)

// Entry is one bookmark.
type Entry struct {
	Name string
	Addr arena.Addr
}

// Listing is an entry as the monitor shows it: by index, the number you
// type to go there.
type Listing struct {
	Index int
	Name  string
}

// Registry is a bounded table of entries. Once full it ignores further
// registrations: nothing is evicted and the table never grows.
type Registry struct {
	mu      sync.Mutex
	entries gen.FixedArray[Entry]
}

// New returns an empty registry that holds up to capacity entries.
func New(capacity int) *Registry {
	return &Registry{entries: gen.NewFixedArray[Entry](capacity)}
}

// Markers is the kernel's registry. It has room only in debug builds; in a
// release build every Register is a no-op.
var Markers = New(shared.NumMarkers)

// Register adds (name, addr) unless the registry is full.
func (r *Registry) Register(name string, addr arena.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries.Full() {
		return
	}
	r.entries.Append(Entry{Name: name, Addr: addr})
}

// List is every entry in the order it was registered.
func (r *Registry) List() []Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	valid := r.entries.Slice()
	result := make([]Listing, len(valid))
	for i, e := range valid {
		result[i] = Listing{Index: i, Name: e.Name}
	}
	return result
}

// Resolve looks up the entry at index.
func (r *Registry) Resolve(index int) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.At(index)
}

// Len is the number of entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Cap is the most entries the registry will ever hold.
func (r *Registry) Cap() int {
	return r.entries.Cap()
}

// Register adds a marker to Markers.
func Register(name string, addr arena.Addr) {
	Markers.Register(name, addr)
}
