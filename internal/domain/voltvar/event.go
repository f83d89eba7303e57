package voltvar

import (
	"fmt"
	"strconv"
	"time"
)

// Severity separates routine diagnostics from unrecoverable-condition reports.
type Severity int

const (
	// SeverityRoutine is a best-effort diagnostic record.
	SeverityRoutine Severity = iota
	// SeverityUnrecoverable is a "belly-up" report: the condition blocks control for the current cycle.
	SeverityUnrecoverable
)

// String returns "routine" or "belly-up".
func (s Severity) String() string {
	if s == SeverityUnrecoverable {
		return "belly-up"
	}

	return "routine"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, bool) {
	switch s {
	case "routine":
		return SeverityRoutine, true
	case "belly-up":
		return SeverityUnrecoverable, true
	default:
		return SeverityRoutine, false
	}
}

// Event is a message emitted to the alarm/log sinks.
type Event struct {
	// Timestamp is when the event was produced.
	Timestamp time.Time
	// Severity selects the routine or belly-up channel.
	Severity Severity
	// CycleID correlates events of the same control cycle. Empty outside a cycle.
	CycleID string
	// SubstationID is the substation the event relates to.
	SubstationID string
	// Message is the formatted diagnostic text consumed by log readers.
	Message string
}

// Routine builds a routine event for a substation.
func Routine(substationID, message string) Event {
	return Event{
		Timestamp:    time.Now(),
		Severity:     SeverityRoutine,
		SubstationID: substationID,
		Message:      message,
	}
}

// Unrecoverable builds a belly-up event for a substation.
func Unrecoverable(substationID, message string) Event {
	return Event{
		Timestamp:    time.Now(),
		Severity:     SeverityUnrecoverable,
		SubstationID: substationID,
		Message:      message,
	}
}

// ControlFailedMessage formats the record logged for a control that had no effect.
func ControlFailedMessage(r *TransformerControlRecord) string {
	return fmt.Sprintf("Control Failed %s %s %s %s",
		r.DeviceID, r.ControlID, r.PreviousControlKind, FormatReading(r.TapPositionAfter))
}

// ControlDecisionMessage formats the record logged when a control is issued.
func ControlDecisionMessage(r *TransformerControlRecord) string {
	return fmt.Sprintf("Control Decision %s %s %s", r.DeviceID, r.ControlID, r.PreviousControlKind)
}

// FormatReading renders a reading with the shortest exact decimal form, e.g. 10.05 or 10.
func FormatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
