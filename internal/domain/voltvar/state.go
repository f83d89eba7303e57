package voltvar

import "strings"

// ControlKind identifies the control action that was issued to a transformer.
type ControlKind int

const (
	// ControlNone means no control has been issued yet.
	ControlNone ControlKind = iota
	// ControlRaiseTap moves the tap changer one step up.
	ControlRaiseTap
	// ControlLowerTap moves the tap changer one step down.
	ControlLowerTap
	// ControlSwitchCapacitorIn closes a capacitor bank breaker.
	ControlSwitchCapacitorIn
	// ControlSwitchCapacitorOut trips a capacitor bank breaker.
	ControlSwitchCapacitorOut
)

//nolint:gochecknoglobals // Lookup table for String and ParseControlKind.
var controlKindNames = map[ControlKind]string{
	ControlNone:               "None",
	ControlRaiseTap:           "RaiseTap",
	ControlLowerTap:           "LowerTap",
	ControlSwitchCapacitorIn:  "SwitchCapacitorIn",
	ControlSwitchCapacitorOut: "SwitchCapacitorOut",
}

// String returns the name used in log records, e.g. "RaiseTap".
func (k ControlKind) String() string {
	if name, ok := controlKindNames[k]; ok {
		return name
	}

	return "None"
}

// ParseControlKind converts a control name (case-insensitive) into a ControlKind.
func ParseControlKind(s string) (ControlKind, bool) {
	s = strings.TrimSpace(s)
	for kind, name := range controlKindNames {
		if strings.EqualFold(name, s) {
			return kind, true
		}
	}

	return ControlNone, false
}

// TieBreakerState is the bus-tie switch status of a substation.
// The zero value is TieIndeterminate: an unread tie is never assumed closed.
type TieBreakerState int

const (
	// TieIndeterminate means the status could not be read or has undefined bits set.
	TieIndeterminate TieBreakerState = iota
	// TieClosed means both buses are joined.
	TieClosed
	// TieOpen means the buses are separated.
	TieOpen
)

// String returns the lower-case tie state name.
func (s TieBreakerState) String() string {
	switch s {
	case TieClosed:
		return "closed"
	case TieOpen:
		return "open"
	default:
		return "indeterminate"
	}
}

// ParseTieBreakerState maps a telemetry value to a TieBreakerState.
// Anything other than a recognised closed/open value is TieIndeterminate.
func ParseTieBreakerState(s string) TieBreakerState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed", "close":
		return TieClosed
	case "open", "trip":
		return TieOpen
	default:
		return TieIndeterminate
	}
}

// TransformerControlRecord holds the control state of one controllable transformer.
type TransformerControlRecord struct {
	// DeviceID is the transformer location identifier.
	DeviceID string
	// ControlID is the tap changer control point identifier.
	ControlID string
	// ControlPending is set when a control is issued and cleared once it has been verified.
	ControlPending bool
	// TapPositionBefore is the tap position sampled when the control was issued.
	TapPositionBefore float64
	// TapPositionAfter is the tap position read back in the current cycle.
	TapPositionAfter float64
	// MVARBefore is the reactive power sampled when the control was issued.
	MVARBefore float64
	// MVARAfter is the reactive power read back in the current cycle.
	MVARAfter float64
	// PreviousControlKind is the control being verified.
	PreviousControlKind ControlKind
}

// SubstationControlState holds the control state of one substation and the
// transformers it owns, in stable device order.
type SubstationControlState struct {
	// SubstationID identifies the substation.
	SubstationID string
	// FailedControlCount counts controls that had no measurable effect.
	// It only grows; resetting it is an operator action outside this service.
	FailedControlCount uint64
	// TieBreakerState is the latest bus-tie switch reading.
	TieBreakerState TieBreakerState
	// Transformers are the transformers owned by the substation.
	Transformers []TransformerControlRecord
}

// TransformerCount returns the number of transformers owned by the substation.
func (s *SubstationControlState) TransformerCount() int {
	return len(s.Transformers)
}

// Transformer returns the record for deviceID, or nil if the substation does not own it.
func (s *SubstationControlState) Transformer(deviceID string) *TransformerControlRecord {
	for i := range s.Transformers {
		if s.Transformers[i].DeviceID == deviceID {
			return &s.Transformers[i]
		}
	}

	return nil
}

// PendingCount returns the number of transformers awaiting verification.
func (s *SubstationControlState) PendingCount() int {
	var pending int

	for i := range s.Transformers {
		if s.Transformers[i].ControlPending {
			pending++
		}
	}

	return pending
}

// Clone returns a deep copy of the state to avoid leaking internal references.
func (s *SubstationControlState) Clone() *SubstationControlState {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Transformers = make([]TransformerControlRecord, len(s.Transformers))
	copy(cloned.Transformers, s.Transformers)

	return &cloned
}

// Actor identifies who issued a control.
type Actor struct {
	// Hostname is the machine name the control was issued from.
	Hostname string
	// Username is the system user who issued the control.
	Username string
}

// String renders the actor as user@host.
func (a *Actor) String() string {
	if a == nil {
		return "unknown"
	}

	return a.Username + "@" + a.Hostname
}
