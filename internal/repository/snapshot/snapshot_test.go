package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `
substations:
  - id: SUB1
    tie_breaker: closed
    transformers:
      - device_id: TX4
        control_id: LTC4
        tap_position: 10.05
        mvar: 5.1
      - device_id: TX5
        control_id: LTC5
        tap_position: 7
        mvar: -1.5
  - id: SUB2
    tie_breaker: "0x3"
`

// writeSnapshot stores contents in a temporary file and returns its path.
func writeSnapshot(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// TestFileSource_Acquire parses a well-formed snapshot.
func TestFileSource_Acquire(t *testing.T) {
	t.Parallel()

	snap, err := NewFileSource(writeSnapshot(t, sampleSnapshot)).Acquire(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Substations, 2)

	sub := snap.Substations[0]
	require.Equal(t, "SUB1", sub.ID)
	require.Equal(t, "closed", sub.TieBreaker)
	require.Equal(t, Transformer{DeviceID: "TX4", ControlID: "LTC4", TapPosition: 10.05, MVAR: 5.1}, sub.Transformers[0])
	require.InDelta(t, -1.5, sub.Transformers[1].MVAR, 0)
	require.Equal(t, "0x3", snap.Substations[1].TieBreaker)
}

// TestFileSource_Errors covers missing files, bad YAML and invalid identifiers.
func TestFileSource_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Acquire(ctx)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewFileSource(writeSnapshot(t, "substations: {")).Acquire(ctx)
	require.Error(t, err)

	_, err = NewFileSource(writeSnapshot(t, "substations: [{id: A}, {id: A}]")).Acquire(ctx)
	require.ErrorIs(t, err, ErrDuplicateID)

	dupDevice := "substations: [{id: A, transformers: [{device_id: T}, {device_id: T}]}]"
	_, err = NewFileSource(writeSnapshot(t, dupDevice)).Acquire(ctx)
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = NewFileSource(writeSnapshot(t, "substations: [{tie_breaker: open}]")).Acquire(ctx)
	require.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = NewFileSource(writeSnapshot(t, sampleSnapshot)).Acquire(canceled)
	require.ErrorIs(t, err, context.Canceled)
}

// TestFileSource_NonFinite keeps .nan and .inf readings parseable but marks them unusable.
func TestFileSource_NonFinite(t *testing.T) {
	t.Parallel()

	path := writeSnapshot(t, `
substations:
  - id: SUB1
    tie_breaker: closed
    transformers:
      - device_id: TX4
        control_id: LTC4
        tap_position: .nan
        mvar: 5
      - device_id: TX5
        control_id: LTC5
        tap_position: 3
        mvar: -.inf
      - device_id: TX6
        control_id: LTC6
        tap_position: 3
        mvar: 1
`)

	snap, err := NewFileSource(path).Acquire(context.Background())
	require.NoError(t, err)

	transformers := snap.Substations[0].Transformers
	require.Len(t, transformers, 3)
	require.False(t, transformers[0].Finite())
	require.False(t, transformers[1].Finite())
	require.True(t, transformers[2].Finite())
}
