package wire

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// Field names of a substation document.
const (
	FieldSubstationID       = "substation_id"
	FieldFailedControlCount = "failed_control_count"
	FieldTieBreakerState    = "tie_breaker_state"
	FieldTransformers       = "transformers"
	FieldPendingCount       = "pending_count"

	FieldDeviceID            = "device_id"
	FieldControlID           = "control_id"
	FieldControlPending      = "control_pending"
	FieldTapPositionBefore   = "tap_position_before"
	FieldTapPositionAfter    = "tap_position_after"
	FieldMVARBefore          = "mvar_before"
	FieldMVARAfter           = "mvar_after"
	FieldPreviousControlKind = "previous_control_kind"
)

// SubstationToStruct encodes a substation control state.
func SubstationToStruct(s *voltvar.SubstationControlState) (*structpb.Struct, error) {
	transformers := make([]any, 0, len(s.Transformers))
	for i := range s.Transformers {
		transformers = append(transformers, transformerToMap(&s.Transformers[i]))
	}

	result, err := structpb.NewStruct(map[string]any{
		FieldSubstationID:       s.SubstationID,
		FieldFailedControlCount: float64(s.FailedControlCount),
		FieldTieBreakerState:    s.TieBreakerState.String(),
		FieldPendingCount:       s.PendingCount(),
		FieldTransformers:       transformers,
	})
	if err != nil {
		return nil, fmt.Errorf("encode substation %s: %w", s.SubstationID, err)
	}

	return result, nil
}

// SubstationFromStruct decodes a substation control state.
func SubstationFromStruct(doc *structpb.Struct) (*voltvar.SubstationControlState, error) {
	r := newFieldReader(doc)

	result := &voltvar.SubstationControlState{
		SubstationID:       r.text(FieldSubstationID),
		FailedControlCount: r.counter(FieldFailedControlCount),
		TieBreakerState:    voltvar.ParseTieBreakerState(r.text(FieldTieBreakerState)),
	}

	items := r.list(FieldTransformers)
	if r.err != nil {
		return nil, fmt.Errorf("decode substation: %w", r.err)
	}

	docs, err := structs(FieldTransformers, items)
	if err != nil {
		return nil, fmt.Errorf("decode substation %s: %w", result.SubstationID, err)
	}

	for _, d := range docs {
		record, err := transformerFromStruct(d)
		if err != nil {
			return nil, fmt.Errorf("decode substation %s: %w", result.SubstationID, err)
		}

		result.Transformers = append(result.Transformers, record)
	}

	return result, nil
}

// SubstationsToList encodes substations as a list of structs.
func SubstationsToList(states []*voltvar.SubstationControlState) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(states))

	for _, s := range states {
		doc, err := SubstationToStruct(s)
		if err != nil {
			return nil, err
		}

		values = append(values, structpb.NewStructValue(doc))
	}

	return &structpb.ListValue{Values: values}, nil
}

// SubstationsFromList decodes a list produced by SubstationsToList.
func SubstationsFromList(list *structpb.ListValue) ([]*voltvar.SubstationControlState, error) {
	docs, err := structs("substations", list.GetValues())
	if err != nil {
		return nil, err
	}

	result := make([]*voltvar.SubstationControlState, 0, len(docs))

	for _, d := range docs {
		s, err := SubstationFromStruct(d)
		if err != nil {
			return nil, err
		}

		result = append(result, s)
	}

	return result, nil
}

// transformerToMap encodes a transformer record for structpb.NewStruct.
func transformerToMap(r *voltvar.TransformerControlRecord) map[string]any {
	return map[string]any{
		FieldDeviceID:            r.DeviceID,
		FieldControlID:           r.ControlID,
		FieldControlPending:      r.ControlPending,
		FieldTapPositionBefore:   r.TapPositionBefore,
		FieldTapPositionAfter:    r.TapPositionAfter,
		FieldMVARBefore:          r.MVARBefore,
		FieldMVARAfter:           r.MVARAfter,
		FieldPreviousControlKind: r.PreviousControlKind.String(),
	}
}

// transformerFromStruct decodes a transformer record.
func transformerFromStruct(doc *structpb.Struct) (voltvar.TransformerControlRecord, error) {
	r := newFieldReader(doc)

	record := voltvar.TransformerControlRecord{
		DeviceID:          r.text(FieldDeviceID),
		ControlID:         r.text(FieldControlID),
		ControlPending:    r.flag(FieldControlPending),
		TapPositionBefore: r.number(FieldTapPositionBefore),
		TapPositionAfter:  r.number(FieldTapPositionAfter),
		MVARBefore:        r.number(FieldMVARBefore),
		MVARAfter:         r.number(FieldMVARAfter),
	}

	kind := r.text(FieldPreviousControlKind)
	if r.err != nil {
		return record, fmt.Errorf("transformer %s: %w", record.DeviceID, r.err)
	}

	if kind != "" {
		parsed, ok := voltvar.ParseControlKind(kind)
		if !ok {
			return record, fmt.Errorf("transformer %s: %w %q: unknown control kind %q",
				record.DeviceID, ErrInvalidField, FieldPreviousControlKind, kind)
		}

		record.PreviousControlKind = parsed
	}

	return record, nil
}
