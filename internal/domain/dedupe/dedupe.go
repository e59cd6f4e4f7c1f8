// Package dedupe tracks feedback event IDs so a retried submission is applied once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen event IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a failed submission can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// ringDeduper remembers the most recent IDs. In bounded mode a ring of slots
// holds insertion order and the oldest live ID is evicted first.
type ringDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]uint64 // id -> insertion sequence
	ring    []slot
	next    uint64 // next insertion sequence
}

type slot struct {
	id  string
	seq uint64
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	seq := d.next
	d.next++
	if d.ring != nil {
		i := seq % uint64(len(d.ring))
		// a slot is stale if its id was unrecorded or re-recorded since
		if old := d.ring[i]; old.id != "" {
			if s, ok := d.seen[old.id]; ok && s == old.seq {
				delete(d.seen, old.id)
			}
		}
		d.ring[i] = slot{id: id, seq: seq}
	}
	d.seen[id] = seq
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
