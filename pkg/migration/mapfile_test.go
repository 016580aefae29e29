package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFileSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transaction_id_map.json")

	m := NewMapFile(path)
	m.Put("venmo:abc123", "txn_01")
	m.Put("stripe:ch_1", "txn_02")
	require.NoError(t, m.Save())

	loaded, err := LoadMapFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	id, ok := loaded.Get("venmo:abc123")
	require.True(t, ok)
	assert.Equal(t, "txn_01", id)

	_, ok = loaded.Get("venmo:missing")
	assert.False(t, ok)
}

func TestLoadMapFileMissingFails(t *testing.T) {
	_, err := LoadMapFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadMapFileCorruptFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadMapFile(path)
	require.Error(t, err)
}

func TestMapFileMergeKeepsExistingEntries(t *testing.T) {
	m := NewMapFile("unused")
	m.Put("venmo:abc", "txn_original")

	m.Merge(map[string]string{
		"venmo:abc": "txn_other",
		"cash:def":  "txn_new",
	})

	id, _ := m.Get("venmo:abc")
	assert.Equal(t, "txn_original", id)
	id, _ = m.Get("cash:def")
	assert.Equal(t, "txn_new", id)
}

func TestMapFileSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")

	m := NewMapFile(path)
	m.Put("venmo:a", "txn_1")
	require.NoError(t, m.Save())

	m.Put("venmo:b", "txn_2")
	require.NoError(t, m.Save())

	loaded, err := LoadMapFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}
