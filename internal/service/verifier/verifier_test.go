package verifier

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

var errTestSink = errors.New("test sink error")

// recordingSink is a minimal Sink that records events and can be told to fail.
type recordingSink struct {
	// events holds every delivered event in emission order.
	events []voltvar.Event
	// failOn makes Emit fail for events of this severity when set.
	failOn *voltvar.Severity
}

// Emit records the event or fails for the configured severity.
func (s *recordingSink) Emit(_ context.Context, event voltvar.Event) error {
	if s.failOn != nil && *s.failOn == event.Severity {
		return errTestSink
	}

	s.events = append(s.events, event)

	return nil
}

// messages returns the recorded messages.
func (s *recordingSink) messages() []string {
	result := make([]string, 0, len(s.events))
	for _, e := range s.events {
		result = append(result, e.Message)
	}

	return result
}

// newSubstation builds a substation with the provided transformers.
func newSubstation(records ...voltvar.TransformerControlRecord) *voltvar.SubstationControlState {
	return &voltvar.SubstationControlState{
		SubstationID:    "SUB1",
		TieBreakerState: voltvar.TieClosed,
		Transformers:    records,
	}
}

// TestVerifyCycle_FailedControl is the failing end-to-end scenario: nothing moved enough.
func TestVerifyCycle_FailedControl(t *testing.T) {
	t.Parallel()

	sub := newSubstation(voltvar.TransformerControlRecord{
		DeviceID:            "TX4",
		ControlID:           "LTC4",
		ControlPending:      true,
		TapPositionBefore:   10.0,
		TapPositionAfter:    10.05,
		MVARBefore:          5.0,
		MVARAfter:           5.1,
		PreviousControlKind: voltvar.ControlRaiseTap,
	})
	sink := new(recordingSink)

	result, err := VerifyCycle(context.Background(), sub, sink)
	require.NoError(t, err)
	require.Equal(t, Result{Verified: 1, Failed: 1}, result)
	require.Equal(t, uint64(1), sub.FailedControlCount)
	require.False(t, sub.Transformers[0].ControlPending)
	require.Equal(t, []string{"Control Failed TX4 LTC4 RaiseTap 10.05"}, sink.messages())
	require.Equal(t, voltvar.SeverityRoutine, sink.events[0].Severity)
	require.Equal(t, "SUB1", sink.events[0].SubstationID)
}

// TestVerifyCycle_SuccessfulControl is the passing end-to-end scenario: the tap moved.
func TestVerifyCycle_SuccessfulControl(t *testing.T) {
	t.Parallel()

	sub := newSubstation(voltvar.TransformerControlRecord{
		DeviceID:            "TX4",
		ControlID:           "LTC4",
		ControlPending:      true,
		TapPositionBefore:   10.0,
		TapPositionAfter:    10.4,
		MVARBefore:          5.0,
		MVARAfter:           5.0,
		PreviousControlKind: voltvar.ControlLowerTap,
	})
	sink := new(recordingSink)

	result, err := VerifyCycle(context.Background(), sub, sink)
	require.NoError(t, err)
	require.Equal(t, Result{Verified: 1}, result)
	require.Zero(t, sub.FailedControlCount)
	require.False(t, sub.Transformers[0].ControlPending)
	require.Empty(t, sink.events)
}

// TestVerifyCycle_NotPending asserts that records without a pending control are left alone.
func TestVerifyCycle_NotPending(t *testing.T) {
	t.Parallel()

	record := voltvar.TransformerControlRecord{
		DeviceID:          "TX4",
		ControlID:         "LTC4",
		TapPositionBefore: 10,
		TapPositionAfter:  10,
	}
	sub := newSubstation(record)
	sub.FailedControlCount = 7
	sink := new(recordingSink)

	result, err := VerifyCycle(context.Background(), sub, sink)
	require.NoError(t, err)
	require.Zero(t, result.Verified)
	require.Equal(t, uint64(7), sub.FailedControlCount)
	require.Equal(t, record, sub.Transformers[0])
	require.Empty(t, sink.events)
}

// TestVerifyCycle_SecondPassIsNoop checks that a cleared flag is never verified again.
func TestVerifyCycle_SecondPassIsNoop(t *testing.T) {
	t.Parallel()

	sub := newSubstation(voltvar.TransformerControlRecord{
		DeviceID:       "TX4",
		ControlID:      "LTC4",
		ControlPending: true,
	})
	sink := new(recordingSink)

	_, err := VerifyCycle(context.Background(), sub, sink)
	require.NoError(t, err)
	require.Equal(t, uint64(1), sub.FailedControlCount)
	require.Len(t, sink.events, 1)

	result, err := VerifyCycle(context.Background(), sub, sink)
	require.NoError(t, err)
	require.Zero(t, result.Verified)
	require.Equal(t, uint64(1), sub.FailedControlCount)
	require.Len(t, sink.events, 1)
}

// TestVerifyCycle_OrderAndCount checks log ordering follows device ordering.
func TestVerifyCycle_OrderAndCount(t *testing.T) {
	t.Parallel()

	var records []voltvar.TransformerControlRecord
	for i := range 4 {
		records = append(records, voltvar.TransformerControlRecord{
			DeviceID:            fmt.Sprintf("TX%d", i),
			ControlID:           fmt.Sprintf("LTC%d", i),
			ControlPending:      i != 2,
			TapPositionBefore:   5,
			TapPositionAfter:    5,
			MVARBefore:          1,
			MVARAfter:           1 + float64(i%2),
			PreviousControlKind: voltvar.ControlSwitchCapacitorIn,
		})
	}

	sub := newSubstation(records...)
	sink := new(recordingSink)

	result, err := VerifyCycle(context.Background(), sub, sink)
	require.NoError(t, err)
	require.Equal(t, Result{Verified: 3, Failed: 1}, result)
	require.Equal(t, uint64(1), sub.FailedControlCount)
	require.Equal(t, []string{"Control Failed TX0 LTC0 SwitchCapacitorIn 5"}, sink.messages())
	require.Zero(t, sub.PendingCount())
}

// TestVerifyCycle_SinkFailure ensures delivery errors are typed and do not undo the verification.
func TestVerifyCycle_SinkFailure(t *testing.T) {
	t.Parallel()

	routine := voltvar.SeverityRoutine
	sink := &recordingSink{failOn: &routine}

	sub := newSubstation(
		voltvar.TransformerControlRecord{DeviceID: "TX4", ControlID: "LTC4", ControlPending: true},
		voltvar.TransformerControlRecord{DeviceID: "TX5", ControlID: "LTC5", ControlPending: true},
	)

	result, err := VerifyCycle(context.Background(), sub, sink)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSinkDelivery)
	require.ErrorIs(t, err, errTestSink)
	require.False(t, IsUnrecoverableDelivery(err))

	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	require.Equal(t, "Control Failed TX4 LTC4 None 0", delivery.Event.Message)

	require.Equal(t, 2, result.Failed)
	require.Equal(t, uint64(2), sub.FailedControlCount)
	require.Zero(t, sub.PendingCount())
}

// TestGuardTie covers the three tie states.
func TestGuardTie(t *testing.T) {
	t.Parallel()

	sink := new(recordingSink)
	sub := newSubstation()

	permitted, err := GuardTie(context.Background(), sub, sink)
	require.NoError(t, err)
	require.True(t, permitted)
	require.Empty(t, sink.events)

	for _, state := range []voltvar.TieBreakerState{voltvar.TieOpen, voltvar.TieIndeterminate} {
		sink = new(recordingSink)
		sub.TieBreakerState = state

		permitted, err = GuardTie(context.Background(), sub, sink)
		require.NoError(t, err)
		require.False(t, permitted)
		require.Len(t, sink.events, 1)
		require.Equal(t, voltvar.SeverityUnrecoverable, sink.events[0].Severity)
		require.Equal(t, "undefined bits set or SUB1 = prog_stat", sink.events[0].Message)
	}
}

// TestGuardTie_SinkFailure asserts the belly-up delivery failure is surfaced and balancing stays blocked.
func TestGuardTie_SinkFailure(t *testing.T) {
	t.Parallel()

	bellyUp := voltvar.SeverityUnrecoverable
	sink := &recordingSink{failOn: &bellyUp}

	sub := newSubstation()
	sub.TieBreakerState = voltvar.TieOpen

	permitted, err := GuardTie(context.Background(), sub, sink)
	require.False(t, permitted)
	require.ErrorIs(t, err, ErrSinkDelivery)
	require.True(t, IsUnrecoverableDelivery(err))
	require.True(t, IsUnrecoverableDelivery(fmt.Errorf("cycle: %w", errors.Join(errTestSink, err))))
}
