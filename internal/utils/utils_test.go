package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTyped(t *testing.T) {
	tests := []struct {
		text     string
		n        int
		lastWord string
		lastFew  string
	}{
		{"", 3, "", ""},
		{"   ", 3, "", ""},
		{"a fluffy", 3, "fluffy", "a fluffy"},
		{"one two three four", 3, "four", "two three four"},
		{"one  two\tthree", 2, "three", "two three"},
		{"red car ", 3, "", "red car"},
		{"solo", 0, "solo", "solo"},
	}
	for _, tt := range tests {
		lastWord, lastFew := SplitTyped(tt.text, tt.n)
		assert.Equal(t, tt.lastWord, lastWord, "last word of %q", tt.text)
		assert.Equal(t, tt.lastFew, lastFew, "last few of %q", tt.text)
	}
}

func TestPartialTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nmax_limit = 12\nname = \"x\"\nfilter = true\n"), 0644))

	data, err := ParseTOMLWithRecovery(path)
	require.NoError(t, err)
	section, ok := ExtractSection(data, "server")
	require.True(t, ok)

	limit, ok := ExtractInt64(section, "max_limit")
	assert.True(t, ok)
	assert.Equal(t, 12, limit)
	name, ok := ExtractString(section, "name")
	assert.True(t, ok)
	assert.Equal(t, "x", name)
	filter, ok := ExtractBool(section, "filter")
	assert.True(t, ok)
	assert.True(t, filter)

	_, ok = ExtractString(section, "max_limit")
	assert.False(t, ok)
}

func TestResolveDirPrefersExisting(t *testing.T) {
	dir := t.TempDir()
	pr := &PathResolver{executableDir: dir}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "wildcards"), 0755))

	assert.Equal(t, "/abs/dir", pr.ResolveDir("/abs/dir"))
	// not present in the working directory, found next to the executable
	assert.Equal(t, filepath.Join(dir, "wildcards"), pr.ResolveDir("wildcards"))
}
