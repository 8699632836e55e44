package autoupdate

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Record is the persisted update-attempt state. It is the sole source of
// truth across launcher restarts; no in-memory state is trusted for the
// failed-update check.
type Record struct {
	PreviousLauncherVersion string   `json:"PreviousLauncherVersion"`
	UpdateFiles             []string `json:"UpdateFiles"`
}

// LoadRecord reads the attempt record, returning nil when none exists.
func LoadRecord(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveRecord persists the attempt record.
func SaveRecord(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// ClearRecord removes the attempt record and, best-effort, the downloaded
// installer files it lists.
func ClearRecord(path string) error {
	rec, err := LoadRecord(path)
	if err == nil && rec != nil {
		for _, f := range rec.UpdateFiles {
			_ = os.Remove(f)
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
