package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"wrapsync/internal/appstate"
)

const SnapshotFileName = "app_state.json"

// StateFile persists snapshots as JSON under a data directory. Writes go to
// a temp file that is renamed into place, so readers never see half a file.
type StateFile struct {
	path string
}

func NewStateFile(dataDir string) *StateFile {
	return &StateFile{path: filepath.Join(dataDir, SnapshotFileName)}
}

func (f *StateFile) Path() string { return f.path }

func (f *StateFile) Save(snap appstate.Snapshot) error {
	return SaveSnapshot(f.path, snap)
}

func (f *StateFile) Load() (appstate.Snapshot, error) {
	return LoadSnapshot(f.path)
}

func SaveSnapshot(path string, snap appstate.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".app_state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns an empty snapshot if the file does not exist yet.
func LoadSnapshot(path string) (appstate.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return appstate.Snapshot{}, nil
		}
		return appstate.Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap appstate.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return appstate.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	snap.State.Holders = positiveHolders(snap.State.Holders)
	return snap, nil
}

// positiveHolders drops entries a hand-edited or older file may carry with
// a null or non-positive balance. The ledger never holds those.
func positiveHolders(holders []appstate.Holder) []appstate.Holder {
	kept := holders[:0]
	for _, h := range holders {
		if h.Balance != nil && h.Balance.Sign() > 0 {
			kept = append(kept, h)
		}
	}
	return kept
}
