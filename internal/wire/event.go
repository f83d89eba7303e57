package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// Field names of an event document.
const (
	FieldTimestamp = "timestamp"
	FieldSeverity  = "severity"
	FieldCycleID   = "cycle_id"
	FieldMessage   = "message"
)

// EventToStruct encodes an event. The timestamp is written in RFC 3339 with nanoseconds.
func EventToStruct(e voltvar.Event) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldTimestamp:    structpb.NewStringValue(e.Timestamp.UTC().Format(time.RFC3339Nano)),
			FieldSeverity:     structpb.NewStringValue(e.Severity.String()),
			FieldCycleID:      structpb.NewStringValue(e.CycleID),
			FieldSubstationID: structpb.NewStringValue(e.SubstationID),
			FieldMessage:      structpb.NewStringValue(e.Message),
		},
	}
}

// EventFromStruct decodes an event.
func EventFromStruct(doc *structpb.Struct) (voltvar.Event, error) {
	r := newFieldReader(doc)

	var (
		timestamp = r.text(FieldTimestamp)
		severity  = r.text(FieldSeverity)
		event     = voltvar.Event{
			CycleID:      r.text(FieldCycleID),
			SubstationID: r.text(FieldSubstationID),
			Message:      r.text(FieldMessage),
		}
	)

	if r.err != nil {
		return event, fmt.Errorf("decode event: %w", r.err)
	}

	parsed, ok := voltvar.ParseSeverity(severity)
	if !ok {
		return event, fmt.Errorf("decode event: %w %q: unknown severity %q", ErrInvalidField, FieldSeverity, severity)
	}

	event.Severity = parsed

	if timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return event, fmt.Errorf("decode event: %w %q: %w", ErrInvalidField, FieldTimestamp, err)
		}

		event.Timestamp = ts
	}

	return event, nil
}

// EventsToList encodes events as a list of structs.
func EventsToList(events []voltvar.Event) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(events))
	for _, e := range events {
		values = append(values, structpb.NewStructValue(EventToStruct(e)))
	}

	return &structpb.ListValue{Values: values}
}

// EventsFromList decodes a list produced by EventsToList.
func EventsFromList(list *structpb.ListValue) ([]voltvar.Event, error) {
	docs, err := structs("events", list.GetValues())
	if err != nil {
		return nil, err
	}

	result := make([]voltvar.Event, 0, len(docs))

	for _, d := range docs {
		e, err := EventFromStruct(d)
		if err != nil {
			return nil, err
		}

		result = append(result, e)
	}

	return result, nil
}
