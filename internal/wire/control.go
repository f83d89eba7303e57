package wire

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// Field names of a control request document.
const (
	FieldControlKind = "control_kind"
	FieldActor       = "actor"
	FieldHostname    = "hostname"
	FieldUsername    = "username"
)

// ControlRequest asks the controller to issue a control to one transformer.
type ControlRequest struct {
	// SubstationID is the substation owning the transformer.
	SubstationID string
	// DeviceID is the transformer to control.
	DeviceID string
	// Kind is the control to issue.
	Kind voltvar.ControlKind
	// Actor is who requested the control. May be nil.
	Actor *voltvar.Actor
}

// ControlRequestToStruct encodes a control request.
func ControlRequestToStruct(req *ControlRequest) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldSubstationID: structpb.NewStringValue(req.SubstationID),
		FieldDeviceID:     structpb.NewStringValue(req.DeviceID),
		FieldControlKind:  structpb.NewStringValue(req.Kind.String()),
	}

	if req.Actor != nil {
		fields[FieldActor] = structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				FieldHostname: structpb.NewStringValue(req.Actor.Hostname),
				FieldUsername: structpb.NewStringValue(req.Actor.Username),
			},
		})
	}

	return &structpb.Struct{Fields: fields}
}

// ControlRequestFromStruct decodes a control request.
func ControlRequestFromStruct(doc *structpb.Struct) (*ControlRequest, error) {
	r := newFieldReader(doc)

	var (
		kind = r.text(FieldControlKind)
		req  = &ControlRequest{
			SubstationID: r.text(FieldSubstationID),
			DeviceID:     r.text(FieldDeviceID),
		}
	)

	if r.err != nil {
		return nil, fmt.Errorf("decode control request: %w", r.err)
	}

	parsed, ok := voltvar.ParseControlKind(kind)
	if !ok {
		return nil, fmt.Errorf("decode control request: %w %q: unknown control kind %q",
			ErrInvalidField, FieldControlKind, kind)
	}

	req.Kind = parsed

	if actorDoc := doc.GetFields()[FieldActor].GetStructValue(); actorDoc != nil {
		ar := newFieldReader(actorDoc)
		req.Actor = &voltvar.Actor{
			Hostname: ar.text(FieldHostname),
			Username: ar.text(FieldUsername),
		}

		if ar.err != nil {
			return nil, fmt.Errorf("decode control request actor: %w", ar.err)
		}
	}

	return req, nil
}
