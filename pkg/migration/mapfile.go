package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MapFile is the durable "source:legacy-id" -> new-id artifact the
// transaction phase writes and the line-item phase consumes. Phases run as
// independent process invocations, so the map lives on disk between them.
type MapFile struct {
	path    string
	entries map[string]string
}

func NewMapFile(path string) *MapFile {
	return &MapFile{path: path, entries: map[string]string{}}
}

// LoadMapFile reads the map from disk. A missing file is an error: the line-item
// phase must fail fast rather than silently synthesize owners for every
// line item.
func LoadMapFile(path string) (*MapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction id map %s: %w", path, err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse transaction id map %s: %w", path, err)
	}

	return &MapFile{path: path, entries: entries}, nil
}

func (m *MapFile) Put(key, newID string) {
	m.entries[key] = newID
}

func (m *MapFile) Get(key string) (string, bool) {
	id, ok := m.entries[key]
	return id, ok
}

func (m *MapFile) Len() int {
	return len(m.entries)
}

// Merge folds another set of entries in, keeping existing winners.
func (m *MapFile) Merge(entries map[string]string) {
	for key, id := range entries {
		if _, ok := m.entries[key]; !ok {
			m.entries[key] = id
		}
	}
}

// Save writes the map atomically: full write to a temp file, then rename,
// so a crash mid-save never leaves a truncated map for phase 3 to trust.
func (m *MapFile) Save() error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), filepath.Base(m.path)+".tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), m.path)
}
