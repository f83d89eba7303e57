package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lvc/internal/config"
	"github.com/oshokin/lvc/internal/domain/voltvar"
	"github.com/oshokin/lvc/internal/wire"
)

const (
	// fieldSavedAt is the document key holding the save time.
	fieldSavedAt = "saved_at"
	// fieldSubstations is the document key holding the fleet.
	fieldSubstations = "substations"
)

// Repository defines persistence operations for the substation fleet state.
type Repository interface {
	Load(ctx context.Context) ([]*voltvar.SubstationControlState, error)
	Save(ctx context.Context, states []*voltvar.SubstationControlState) error
}

// FileRepository persists the fleet state to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) so the file
// matches what the gRPC API returns.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the state file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the fleet state from disk.
func (r *FileRepository) Load(_ context.Context) ([]*voltvar.SubstationControlState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc structpb.Struct
	if err = protojson.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	states, err := wire.SubstationsFromList(doc.GetFields()[fieldSubstations].GetListValue())
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return states, nil
}

// Save writes the fleet state to disk. The file is replaced atomically.
func (r *FileRepository) Save(_ context.Context, states []*voltvar.SubstationControlState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := wire.SubstationsToList(states)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	var (
		doc = &structpb.Struct{
			Fields: map[string]*structpb.Value{
				fieldSavedAt:     structpb.NewStringValue(time.Now().UTC().Format(time.RFC3339)),
				fieldSubstations: structpb.NewListValue(list),
			},
		}
		marshalOptions = protojson.MarshalOptions{
			Multiline:       true,
			EmitUnpopulated: true,
		}
	)

	data, err := marshalOptions.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
