package voltvar

import "math"

// ControlTolerance is the minimum tap or MVAR movement accepted as evidence
// that a control took effect. It applies to both quantities.
const ControlTolerance = 0.2

// Outcome is the verification result of a single control.
type Outcome int

const (
	// OutcomeSuccess means the tap position or the MVAR flow moved.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure means neither quantity moved by ControlTolerance.
	OutcomeFailure
)

// String returns "success" or "failure".
func (o Outcome) String() string {
	if o == OutcomeFailure {
		return "failure"
	}

	return "success"
}

// Classify decides whether a control produced a measurable effect.
// The control failed only if both the tap and MVAR deltas are strictly below ControlTolerance.
func Classify(tapBefore, tapAfter, mvarBefore, mvarAfter float64) Outcome {
	tapDelta := math.Abs(tapAfter - tapBefore)
	mvarDelta := math.Abs(mvarAfter - mvarBefore)

	if tapDelta < ControlTolerance && mvarDelta < ControlTolerance {
		return OutcomeFailure
	}

	return OutcomeSuccess
}

// ClassifyRecord applies Classify to the before/after readings of a record.
func ClassifyRecord(r *TransformerControlRecord) Outcome {
	return Classify(r.TapPositionBefore, r.TapPositionAfter, r.MVARBefore, r.MVARAfter)
}
