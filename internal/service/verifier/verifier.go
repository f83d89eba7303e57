package verifier

import (
	"context"
	"errors"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// Result summarises one verification pass over a substation.
type Result struct {
	// Verified is the number of pending controls that were checked.
	Verified int
	// Failed is the number of controls classified as failures.
	Failed int
}

// VerifyCycle checks every pending control of the substation issued in the previous cycle.
//
// A failed control is logged once and increments FailedControlCount by one. The pending
// flag is cleared whatever the outcome, and also when the sink rejects the log record,
// so the same command is never verified twice against stale readings.
// Delivery failures do not stop the pass; they are returned joined once all transformers
// have been processed.
func VerifyCycle(ctx context.Context, substation *voltvar.SubstationControlState, sink Sink) (Result, error) {
	var (
		result Result
		errs   []error
	)

	for i := range substation.TransformerCount() {
		record := &substation.Transformers[i]
		if !record.ControlPending {
			continue
		}

		result.Verified++

		if voltvar.ClassifyRecord(record) == voltvar.OutcomeFailure {
			result.Failed++
			substation.FailedControlCount++

			event := voltvar.Routine(substation.SubstationID, voltvar.ControlFailedMessage(record))
			if err := emit(ctx, sink, event); err != nil {
				errs = append(errs, err)
			}
		}

		record.ControlPending = false
	}

	return result, errors.Join(errs...)
}

// GuardTie checks the bus tie of the substation and reports an unsafe tie on the belly-up channel.
// It returns true when tie-based reactive balancing may run this cycle. It never runs balancing itself.
// A failed report still returns false: an unsafe tie stays blocked whether or not it was reported.
func GuardTie(ctx context.Context, substation *voltvar.SubstationControlState, sink Sink) (bool, error) {
	report := voltvar.CheckTie(substation.SubstationID, substation.TieBreakerState)
	if report == nil {
		return true, nil
	}

	return false, emit(ctx, sink, report.Event())
}
