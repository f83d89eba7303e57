package voltvar

import "fmt"

// AlarmReport describes an unrecoverable precondition detected for a substation.
type AlarmReport struct {
	// SubstationID is the substation whose tie cannot be trusted.
	SubstationID string
	// Message is the text routed to the belly-up channel.
	Message string
}

// Event converts the report into a belly-up event.
func (r *AlarmReport) Event() Event {
	return Unrecoverable(r.SubstationID, r.Message)
}

// CheckTie decides whether tie-based reactive balancing is safe for a substation.
// A closed tie yields no report. Every other state, including a transiently open
// tie, yields a report: the balancing path must not be entered this cycle.
func CheckTie(substationID string, state TieBreakerState) *AlarmReport {
	if state == TieClosed {
		return nil
	}

	return &AlarmReport{
		SubstationID: substationID,
		Message:      fmt.Sprintf("undefined bits set or %s = prog_stat", substationID),
	}
}
