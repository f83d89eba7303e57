package sink

import (
	"context"
	"sync"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// DefaultRecorderCapacity is used when a non-positive capacity is given.
const DefaultRecorderCapacity = 256

// Recorder keeps the most recent events in memory.
type Recorder struct {
	// mu guards the ring.
	mu sync.Mutex
	// ring holds up to capacity events.
	ring []voltvar.Event
	// next is the ring index the next event is written to.
	next int
	// full is set once the ring has wrapped.
	full bool
}

// NewRecorder creates a recorder holding at most capacity events.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}

	return &Recorder{
		ring: make([]voltvar.Event, capacity),
	}
}

// Emit implements Emitter.
func (r *Recorder) Emit(_ context.Context, event voltvar.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ring[r.next] = event
	r.next = (r.next + 1) % len(r.ring)

	if r.next == 0 {
		r.full = true
	}

	return nil
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []voltvar.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]voltvar.Event(nil), r.ring[:r.next]...)
	}

	result := make([]voltvar.Event, 0, len(r.ring))
	result = append(result, r.ring[r.next:]...)

	return append(result, r.ring[:r.next]...)
}

// Recent returns at most limit of the newest recorded events, oldest first.
// A non-positive limit returns everything held.
func (r *Recorder) Recent(_ context.Context, limit int) ([]voltvar.Event, error) {
	events := r.Events()
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	return events, nil
}
