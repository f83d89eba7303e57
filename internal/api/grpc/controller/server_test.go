package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/wire"
)

var errTestPersist = errors.New("test persist error")

// fakeService implements the controller Service interface for unit testing the transport.
type fakeService struct {
	// issueFn overrides IssueControl when set.
	issueFn func(substationID, deviceID string, kind voltvar.ControlKind, actor *voltvar.Actor) (*voltvar.SubstationControlState, error)
	// states holds the substations known to the fake.
	states map[string]*voltvar.SubstationControlState
	// events is returned from RecentEvents.
	events []voltvar.Event
	// eventsErr is returned from RecentEvents when set.
	eventsErr error
}

// Substation returns a known substation or ErrUnknownSubstation.
func (f *fakeService) Substation(_ context.Context, id string) (*voltvar.SubstationControlState, error) {
	s, ok := f.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", voltvar.ErrUnknownSubstation, id)
	}

	return s, nil
}

// Substations returns every known substation.
func (f *fakeService) Substations(context.Context) []*voltvar.SubstationControlState {
	result := make([]*voltvar.SubstationControlState, 0, len(f.states))
	for _, s := range f.states {
		result = append(result, s)
	}

	return result
}

// IssueControl delegates to issueFn or marks the device pending.
func (f *fakeService) IssueControl(
	ctx context.Context,
	substationID, deviceID string,
	kind voltvar.ControlKind,
	actor *voltvar.Actor,
) (*voltvar.SubstationControlState, error) {
	if f.issueFn != nil {
		return f.issueFn(substationID, deviceID, kind, actor)
	}

	s, err := f.Substation(ctx, substationID)
	if err != nil {
		return nil, err
	}

	record := s.Transformer(deviceID)
	record.ControlPending = true
	record.PreviousControlKind = kind

	return s, nil
}

// RecentEvents returns the configured events.
func (f *fakeService) RecentEvents(context.Context) ([]voltvar.Event, error) {
	return f.events, f.eventsErr
}

// newFakeService returns a fake with SUB1/TX4.
func newFakeService() *fakeService {
	return &fakeService{
		states: map[string]*voltvar.SubstationControlState{
			"SUB1": {
				SubstationID:    "SUB1",
				TieBreakerState: voltvar.TieClosed,
				Transformers: []voltvar.TransformerControlRecord{
					{DeviceID: "TX4", ControlID: "LTC4", TapPositionAfter: 10},
				},
			},
		},
	}
}

// TestServer_GetSubstation covers lookup, validation and not-found mapping.
func TestServer_GetSubstation(t *testing.T) {
	t.Parallel()

	s := NewServer(newFakeService())

	_, err := s.GetSubstation(context.Background(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.GetSubstation(context.Background(), wrapperspb.String("SUB9"))
	require.Equal(t, codes.NotFound, status.Code(err))

	doc, err := s.GetSubstation(context.Background(), wrapperspb.String("SUB1"))
	require.NoError(t, err)

	got, err := wire.SubstationFromStruct(doc)
	require.NoError(t, err)
	require.Equal(t, "SUB1", got.SubstationID)
	require.Equal(t, voltvar.TieClosed, got.TieBreakerState)
}

// TestServer_IssueControl validates requests and maps service errors.
func TestServer_IssueControl(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	s := NewServer(svc)
	ctx := context.Background()

	_, err := s.IssueControl(ctx, nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	bad, err := structpb.NewStruct(map[string]any{wire.FieldControlKind: "Sideways"})
	require.NoError(t, err)

	_, err = s.IssueControl(ctx, bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.IssueControl(ctx, wire.ControlRequestToStruct(&wire.ControlRequest{Kind: voltvar.ControlRaiseTap}))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	request := wire.ControlRequestToStruct(&wire.ControlRequest{
		SubstationID: "SUB1",
		DeviceID:     "TX4",
		Kind:         voltvar.ControlRaiseTap,
		Actor:        &voltvar.Actor{Hostname: "scada-01", Username: "operator"},
	})

	doc, err := s.IssueControl(ctx, request)
	require.NoError(t, err)

	got, err := wire.SubstationFromStruct(doc)
	require.NoError(t, err)
	require.True(t, got.Transformer("TX4").ControlPending)
	require.Equal(t, voltvar.ControlRaiseTap, got.Transformer("TX4").PreviousControlKind)

	tests := []struct {
		err  error
		code codes.Code
	}{
		{err: voltvar.ErrControlPending, code: codes.FailedPrecondition},
		{err: voltvar.ErrNoControl, code: codes.InvalidArgument},
		{err: voltvar.ErrUnknownDevice, code: codes.NotFound},
		{err: errTestPersist, code: codes.Internal},
	}

	for _, tt := range tests {
		svc.issueFn = func(string, string, voltvar.ControlKind, *voltvar.Actor) (*voltvar.SubstationControlState, error) {
			return nil, fmt.Errorf("issue: %w", tt.err)
		}

		_, err = s.IssueControl(ctx, request)
		require.Equal(t, tt.code, status.Code(err), tt.err.Error())
	}
}

// TestServer_Lists exercises ListSubstations and ListEvents.
func TestServer_Lists(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		svc := newFakeService()
		svc.events = []voltvar.Event{voltvar.Unrecoverable("SUB1", "undefined bits set or SUB1 = prog_stat")}
		s := NewServer(svc)

		list, err := s.ListSubstations(context.Background(), new(emptypb.Empty))
		require.NoError(t, err)
		require.Len(t, list.GetValues(), 1)

		events, err := s.ListEvents(context.Background(), new(emptypb.Empty))
		require.NoError(t, err)

		decoded, err := wire.EventsFromList(events)
		require.NoError(t, err)
		require.Len(t, decoded, 1)
		require.Equal(t, voltvar.SeverityUnrecoverable, decoded[0].Severity)
		require.True(t, decoded[0].Timestamp.Equal(time.Now()))
	})
}

// TestServer_ListEventsFailure hides journal errors behind codes.Internal.
func TestServer_ListEventsFailure(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	svc.eventsErr = errTestPersist

	_, err := NewServer(svc).ListEvents(context.Background(), new(emptypb.Empty))
	require.Equal(t, codes.Internal, status.Code(err))
}
