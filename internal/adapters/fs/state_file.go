// Package fs persists tail state on the local file system.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/bft-labs/digestmail/internal/domain"
)

const stateFileName = "offsets.json"

// StateFileRepository implements ports.StateRepository using a JSON file.
type StateFileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewStateFileRepository creates a repository storing offsets in dir.
func NewStateFileRepository(dir string) *StateFileRepository {
	return &StateFileRepository{dir: dir}
}

// Load returns the saved offsets, or an empty state when none exist yet.
func (r *StateFileRepository) Load(ctx context.Context) (domain.TailState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.Path())
	if errors.Is(err, os.ErrNotExist) {
		return domain.TailState{Offsets: map[string]int64{}}, nil
	}
	if err != nil {
		return domain.TailState{}, err
	}

	var state domain.TailState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.TailState{}, fmt.Errorf("decode %s: %w", stateFileName, err)
	}
	if state.Offsets == nil {
		state.Offsets = map[string]int64{}
	}
	return state, nil
}

// Save writes state to a temp file and renames it over the previous one.
func (r *StateFileRepository) Save(ctx context.Context, state domain.TailState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the state file.
func (r *StateFileRepository) Path() string {
	return filepath.Join(r.dir, stateFileName)
}
