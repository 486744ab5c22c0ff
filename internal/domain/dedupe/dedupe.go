// Package dedupe tracks identifiers already seen within one scoring round.
package dedupe

import (
	"sync"
)

// Deduper records seen validator IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(id string) bool

	// Unrecord forgets id.
	Unrecord(id string)

	Size() int
}

// inMemoryDeduper is an unbounded set: a round must see every ID it holds.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithCapacity preallocates room for n IDs.
func WithCapacity(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.seen = make(map[string]struct{}, n)
		}
	}
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// FirstDuplicate returns the first ID in ids that repeats an earlier one.
func FirstDuplicate(ids []string) (string, bool) {
	d := NewInMemoryDeduper(WithCapacity(len(ids)))
	for _, id := range ids {
		if d.SeenAndRecord(id) {
			return id, true
		}
	}
	return "", false
}
