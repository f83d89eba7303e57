package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrDuplicateID is returned when a snapshot lists the same substation or device twice.
var ErrDuplicateID = errors.New("duplicate identifier")

// Source returns the latest readings for the fleet.
type Source interface {
	Acquire(ctx context.Context) (*Snapshot, error)
}

// Snapshot is one acquisition of the whole fleet.
type Snapshot struct {
	// Substations are the readings grouped by substation.
	Substations []Substation `yaml:"substations"`
}

// Substation holds the readings of one substation.
type Substation struct {
	// ID identifies the substation.
	ID string `yaml:"id"`
	// TieBreaker is the raw tie status, e.g. "closed" or "open". Anything else is indeterminate.
	TieBreaker string `yaml:"tie_breaker"`
	// Transformers are the per-transformer readings.
	Transformers []Transformer `yaml:"transformers"`
}

// Transformer holds the readings of one transformer.
type Transformer struct {
	// DeviceID identifies the transformer.
	DeviceID string `yaml:"device_id"`
	// ControlID identifies the tap changer or capacitor control point.
	ControlID string `yaml:"control_id"`
	// TapPosition is the current tap position reading.
	TapPosition float64 `yaml:"tap_position"`
	// MVAR is the current reactive power reading.
	MVAR float64 `yaml:"mvar"`
}

// Finite reports whether both readings are usable numbers.
// YAML accepts .nan and .inf, which would otherwise leak into the control state.
func (t *Transformer) Finite() bool {
	return isFinite(t.TapPosition) && isFinite(t.MVAR)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate rejects empty and duplicated identifiers.
func (s *Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Substations))

	for i := range s.Substations {
		sub := &s.Substations[i]

		id := strings.TrimSpace(sub.ID)
		if id == "" {
			return fmt.Errorf("substation #%d has no id", i)
		}

		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: substation %s", ErrDuplicateID, id)
		}

		seen[id] = struct{}{}
		devices := make(map[string]struct{}, len(sub.Transformers))

		for j := range sub.Transformers {
			device := strings.TrimSpace(sub.Transformers[j].DeviceID)
			if device == "" {
				return fmt.Errorf("substation %s: transformer #%d has no device id", id, j)
			}

			if _, ok := devices[device]; ok {
				return fmt.Errorf("%w: substation %s device %s", ErrDuplicateID, id, device)
			}

			devices[device] = struct{}{}
		}
	}

	return nil
}

// FileSource reads a snapshot from a YAML file on every acquisition.
type FileSource struct {
	// path is the YAML file location.
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path: filepath.Clean(path),
	}
}

// Acquire reads and validates the snapshot file.
func (s *FileSource) Acquire(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err = yaml.Unmarshal(contents, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	if err = snap.Validate(); err != nil {
		return nil, fmt.Errorf("validate snapshot: %w", err)
	}

	return &snap, nil
}
