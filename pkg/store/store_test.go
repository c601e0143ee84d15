package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Store) {
	t.Helper()

	require.NoError(t, s.Set("__a__", "red car"))
	require.NoError(t, s.Set("__b__", "red bus"))
	require.NoError(t, s.Set("__a__", "blue car"))

	content, ok := s.Get("__a__")
	assert.True(t, ok)
	assert.Equal(t, "blue car", content)
	assert.ElementsMatch(t, []string{"__a__", "__b__"}, s.Keys())

	require.NoError(t, s.Delete("__b__"))
	_, ok = s.Get("__b__")
	assert.False(t, ok)

	snap := s.Snapshot()
	snap["__a__"] = "changed"
	content, _ = s.Get("__a__")
	assert.Equal(t, "blue car", content, "snapshot must be a copy")

	require.NoError(t, s.Replace(map[string]string{"__x__": "x", "__y__": "y"}))
	assert.Equal(t, map[string]string{"__x__": "x", "__y__": "y"}, s.Snapshot())
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wildcards.msgpack")

	f, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, f.Keys())
	exercise(t, f)
	require.NoError(t, f.Set("__z__", "last"))
	require.NoError(t, f.Close())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"__x__": "x", "__y__": "y", "__z__": "last"}, reopened.Snapshot())
}

func TestFileWriteFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	f, err := OpenFile(filepath.Join(dir, "wildcards.msgpack"))
	require.NoError(t, err)
	require.NoError(t, f.Set("__a__", "kept"))

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0644))
	f.path = filepath.Join(blocker, "wildcards.msgpack")

	assert.Error(t, f.Set("__a__", "lost"))
	assert.Error(t, f.Delete("__a__"))
	assert.Error(t, f.Set("__new__", "lost"))
	assert.Error(t, f.Replace(map[string]string{"__b__": "lost"}))

	assert.Equal(t, map[string]string{"__a__": "kept"}, f.Snapshot())
}

func TestFileRejectsCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wildcards.msgpack")
	require.NoError(t, os.WriteFile(path, []byte{0xc1}, 0644))
	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestSQLitePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wildcards.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	exercise(t, s)
	require.NoError(t, s.Set("__z__", "last"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, map[string]string{"__x__": "x", "__y__": "y", "__z__": "last"}, reopened.Snapshot())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		path    string
		wantErr bool
	}{
		{"", "", false},
		{"memory", "", false},
		{"file", filepath.Join(dir, "c.msgpack"), false},
		{"SQLite", filepath.Join(dir, "c.db"), false},
		{"file", "", true},
		{"redis", "", true},
	}
	for _, tt := range tests {
		s, err := Open(tt.backend, tt.path)
		if tt.wantErr {
			assert.Error(t, err, "backend %q", tt.backend)
			continue
		}
		require.NoError(t, err, "backend %q", tt.backend)
		require.NoError(t, s.Close())
	}
}
