package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// Sink accepts events on the routine and belly-up channels.
type Sink interface {
	Emit(ctx context.Context, event voltvar.Event) error
}

// ErrSinkDelivery matches every DeliveryError via errors.Is.
var ErrSinkDelivery = errors.New("sink delivery failed")

// DeliveryError reports that a sink did not accept an event.
type DeliveryError struct {
	// Event is the event that was not delivered.
	Event voltvar.Event
	// Err is the underlying sink error.
	Err error
}

// Error implements error.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s event for %s: %v", e.Event.Severity, e.Event.SubstationID, e.Err)
}

// Unwrap returns the underlying sink error.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrSinkDelivery) true.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrSinkDelivery
}

// Unrecoverable reports whether the undelivered event was a belly-up report.
func (e *DeliveryError) Unrecoverable() bool {
	return e.Event.Severity == voltvar.SeverityUnrecoverable
}

// IsUnrecoverableDelivery reports whether err contains a failed belly-up delivery.
// Unlike errors.As it keeps walking joined errors past the first DeliveryError.
func IsUnrecoverableDelivery(err error) bool {
	if err == nil {
		return false
	}

	//nolint:errorlint // Each level of the chain is inspected explicitly.
	if de, ok := err.(*DeliveryError); ok && de.Unrecoverable() {
		return true
	}

	//nolint:errorlint // Joined errors expose their branches only through this interface.
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if IsUnrecoverableDelivery(inner) {
				return true
			}
		}

		return false
	}

	return IsUnrecoverableDelivery(errors.Unwrap(err))
}

// emit delivers event and wraps a failure into a DeliveryError.
func emit(ctx context.Context, sink Sink, event voltvar.Event) error {
	if err := sink.Emit(ctx, event); err != nil {
		return &DeliveryError{
			Event: event,
			Err:   err,
		}
	}

	return nil
}
