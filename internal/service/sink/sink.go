package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/logger"
)

// Emitter is anything that accepts events.
type Emitter interface {
	Emit(ctx context.Context, event voltvar.Event) error
}

// Fanout delivers every event to all of its emitters in order.
type Fanout []Emitter

// Emit delivers event to each emitter and joins their errors.
// A failing emitter does not stop delivery to the rest.
func (f Fanout) Emit(ctx context.Context, event voltvar.Event) error {
	var errs []error

	for i, e := range f {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("emitter %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// bestEffort logs and swallows delivery errors of the wrapped emitter.
type bestEffort struct {
	// name identifies the wrapped emitter in the warning.
	name string
	// next is the wrapped emitter.
	next Emitter
}

// BestEffort wraps next so that its failures are logged as warnings instead of returned.
func BestEffort(name string, next Emitter) Emitter {
	return &bestEffort{
		name: name,
		next: next,
	}
}

// Emit implements Emitter.
func (b *bestEffort) Emit(ctx context.Context, event voltvar.Event) error {
	if err := b.next.Emit(ctx, event); err != nil {
		logger.WarnKV(ctx, "Best-effort sink dropped event",
			"sink", b.name,
			"severity", event.Severity.String(),
			"substation", event.SubstationID,
			"error", err)
	}

	return nil
}

// cycleStamp sets the cycle ID on events passing through it.
type cycleStamp struct {
	// cycleID is the value assigned to events that carry none.
	cycleID string
	// next receives the stamped event.
	next Emitter
}

// WithCycle returns an emitter that tags events lacking a cycle ID with cycleID.
func WithCycle(cycleID string, next Emitter) Emitter {
	return &cycleStamp{
		cycleID: cycleID,
		next:    next,
	}
}

// Emit implements Emitter.
func (c *cycleStamp) Emit(ctx context.Context, event voltvar.Event) error {
	if event.CycleID == "" {
		event.CycleID = c.cycleID
	}

	return c.next.Emit(ctx, event)
}
