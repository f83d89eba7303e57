package client

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/lvc/internal/domain/voltvar"
)

// TestIssue_RejectsUnknownKind fails before dialing for unknown or empty controls.
func TestIssue_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"Sideways", "None", ""} {
		err := Issue(context.Background(), new(Options), "SUB1", "TX4", kind)
		require.ErrorIs(t, err, voltvar.ErrNoControl, kind)
	}
}

// TestPrintSubstation renders the substation header and transformer rows.
func TestPrintSubstation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printSubstation(&buf, &voltvar.SubstationControlState{
		SubstationID:       "SUB1",
		FailedControlCount: 2,
		TieBreakerState:    voltvar.TieOpen,
		Transformers: []voltvar.TransformerControlRecord{
			{
				DeviceID:            "TX4",
				ControlID:           "LTC4",
				ControlPending:      true,
				TapPositionBefore:   10,
				TapPositionAfter:    10.05,
				MVARBefore:          5,
				MVARAfter:           5.1,
				PreviousControlKind: voltvar.ControlRaiseTap,
			},
		},
	})

	require.Equal(t,
		"SUB1 tie=open failed_controls=2 pending=1\n"+
			"  TX4 LTC4 tap=10->10.05 mvar=5->5.1 last=RaiseTap pending=true\n",
		buf.String())
}
