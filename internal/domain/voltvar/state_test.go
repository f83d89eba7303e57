package voltvar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSubstationClone verifies that Clone copies the transformer slice.
func TestSubstationClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*SubstationControlState)(nil).Clone())

	s := &SubstationControlState{
		SubstationID:       "SUB1",
		FailedControlCount: 3,
		TieBreakerState:    TieClosed,
		Transformers: []TransformerControlRecord{
			{DeviceID: "TX4", ControlID: "LTC4", ControlPending: true},
		},
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)

	c.Transformers[0].ControlPending = false
	require.True(t, s.Transformers[0].ControlPending)
}

// TestSubstationLookups checks Transformer, TransformerCount and PendingCount.
func TestSubstationLookups(t *testing.T) {
	t.Parallel()

	s := &SubstationControlState{
		Transformers: []TransformerControlRecord{
			{DeviceID: "TX4", ControlPending: true},
			{DeviceID: "TX5"},
		},
	}

	require.Equal(t, 2, s.TransformerCount())
	require.Equal(t, 1, s.PendingCount())
	require.Nil(t, s.Transformer("TX9"))

	tx := s.Transformer("TX5")
	require.NotNil(t, tx)

	tx.ControlPending = true
	require.Equal(t, 2, s.PendingCount())
}

// TestParseControlKind checks the name round trip and unknown input.
func TestParseControlKind(t *testing.T) {
	t.Parallel()

	for _, kind := range []ControlKind{
		ControlNone, ControlRaiseTap, ControlLowerTap, ControlSwitchCapacitorIn, ControlSwitchCapacitorOut,
	} {
		got, ok := ParseControlKind(kind.String())
		require.True(t, ok)
		require.Equal(t, kind, got)
	}

	got, ok := ParseControlKind(" raisetap ")
	require.True(t, ok)
	require.Equal(t, ControlRaiseTap, got)

	_, ok = ParseControlKind("bump")
	require.False(t, ok)
}

// TestParseTieBreakerState maps unknown telemetry to indeterminate.
func TestParseTieBreakerState(t *testing.T) {
	t.Parallel()

	require.Equal(t, TieClosed, ParseTieBreakerState("CLOSED"))
	require.Equal(t, TieOpen, ParseTieBreakerState("open"))
	require.Equal(t, TieIndeterminate, ParseTieBreakerState(""))
	require.Equal(t, TieIndeterminate, ParseTieBreakerState("10"))
	require.Equal(t, TieIndeterminate, TieBreakerState(0))
}
