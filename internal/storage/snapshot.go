package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"pairRouter/internal/model"
)

// Snapshot is the state of every pool at the end of a run.
type Snapshot struct {
	Timestamp uint64               `json:"timestamp"`
	Tokens    []model.TokenMeta    `json:"tokens"`
	Pools     []model.PoolSnapshot `json:"pools"`
	UpdatedAt string               `json:"updated_at"`
}

// SnapshotFile persists a Snapshot, replacing the file atomically.
type SnapshotFile struct {
	path string
}

// NewSnapshotFile binds a snapshot at path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Load reads the snapshot. The bool is false when the file does not exist.
func (f *SnapshotFile) Load() (Snapshot, bool, error) {
	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return Snapshot{}, false, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}

// Save stamps UpdatedAt and replaces the file via a temporary file and rename.
func (f *SnapshotFile) Save(snap Snapshot) error {
	if err := ensureDir(f.path); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
