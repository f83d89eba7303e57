package controller

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/logger"
	"github.com/oshokin/lvc/internal/wire"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Substation(ctx context.Context, substationID string) (*voltvar.SubstationControlState, error)
	Substations(ctx context.Context) []*voltvar.SubstationControlState
	IssueControl(
		ctx context.Context,
		substationID, deviceID string,
		kind voltvar.ControlKind,
		actor *voltvar.Actor,
	) (*voltvar.SubstationControlState, error)
	RecentEvents(ctx context.Context) ([]voltvar.Event, error)
}

// Server implements the ControllerService gRPC API.
type Server struct {
	// service provides the controller operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetSubstation returns the control state of one substation.
func (s *Server) GetSubstation(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	substationID := strings.TrimSpace(req.GetValue())
	if substationID == "" {
		return nil, status.Error(codes.InvalidArgument, "substation id is required")
	}

	state, err := s.service.Substation(ctx, substationID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	doc, err := wire.SubstationToStruct(state)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return doc, nil
}

// ListSubstations returns the control state of every substation ordered by ID.
func (s *Server) ListSubstations(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := wire.SubstationsToList(s.service.Substations(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return list, nil
}

// IssueControl arms a control on a transformer and returns the updated substation.
func (s *Server) IssueControl(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	control, err := wire.ControlRequestFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if control.SubstationID == "" || control.DeviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "substation id and device id are required")
	}

	state, err := s.service.IssueControl(ctx, control.SubstationID, control.DeviceID, control.Kind, control.Actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	doc, err := wire.SubstationToStruct(state)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return doc, nil
}

// ListEvents returns the recently emitted events, oldest first.
func (s *Server) ListEvents(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	events, err := s.service.RecentEvents(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return wire.EventsToList(events), nil
}

// toStatus maps service errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, voltvar.ErrUnknownSubstation), errors.Is(err, voltvar.ErrUnknownDevice):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, voltvar.ErrNoControl):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, voltvar.ErrControlPending):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		logger.ErrorKV(ctx, "Controller request failed", "error", err)

		return status.Error(codes.Internal, "internal controller error")
	}
}
