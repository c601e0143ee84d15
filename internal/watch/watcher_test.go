package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsMatchingFiles(t *testing.T) {
	dir := t.TempDir()

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	done := make(chan struct{})
	var once sync.Once

	w, err := New(Config{
		Dir:      dir,
		Pattern:  "**/*.txt",
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range changed {
				seen[filepath.ToSlash(c)] = true
			}
			if seen["a.txt"] && seen["b.txt"] {
				once.Do(func() { close(done) })
			}
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	for _, name := range []string{"a.txt", "notes.md", "b.txt", "c.txt.swp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}

	cancel()
	require.NoError(t, <-errCh)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, seen["notes.md"])
	assert.False(t, seen["c.txt.swp"])
}

func TestWatcherRunOnce(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, w.Run(ctx))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir(), Pattern: "["})
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	w := &Watcher{cfg: Config{Pattern: "**/*.txt"}}
	tests := []struct {
		rel  string
		want bool
	}{
		{"cat.txt", true},
		{filepath.Join("animals", "dog.txt"), true},
		{"readme.md", false},
		{filepath.Join(".git", "x.txt"), false},
		{"cat.txt~", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.matches(tt.rel), tt.rel)
	}
}

// startWatcher runs a watcher over dir and returns a channel of reported paths.
func startWatcher(t *testing.T, dir string) <-chan string {
	t.Helper()
	reported := make(chan string, 64)
	w, err := New(Config{
		Dir:      dir,
		Pattern:  "**/*.txt",
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			for _, c := range changed {
				reported <- filepath.ToSlash(c)
			}
			return nil
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errCh)
	})
	return reported
}

// waitFor collects reported paths until every wanted path was seen.
func waitFor(t *testing.T, reported <-chan string, want ...string) {
	t.Helper()
	missing := make(map[string]bool, len(want))
	for _, p := range want {
		missing[p] = true
	}
	timeout := time.After(5 * time.Second)
	for len(missing) > 0 {
		select {
		case p := <-reported:
			delete(missing, p)
		case <-timeout:
			t.Fatalf("timed out, never reported: %v", missing)
		}
	}
}

func TestWatcherReportsFilesOfDirectoryMovedIn(t *testing.T) {
	dir := t.TempDir()
	staging := t.TempDir()
	writeTree(t, staging, "animals/cat.txt", "animals/deep/owl.txt", "animals/readme.md")

	reported := startWatcher(t, dir)
	require.NoError(t, os.Rename(filepath.Join(staging, "animals"), filepath.Join(dir, "animals")))

	waitFor(t, reported, "animals/cat.txt", "animals/deep/owl.txt")
}

func TestWatcherReportsFilesOfDirectoryMovedOut(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, dir, "animals/cat.txt", "animals/deep/owl.txt", "colors.txt")

	reported := startWatcher(t, dir)
	require.NoError(t, os.Rename(filepath.Join(dir, "animals"), filepath.Join(outside, "animals")))

	waitFor(t, reported, "animals/cat.txt", "animals/deep/owl.txt")
}

func TestWatcherReportsFilesOfRemovedDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "animals/cat.txt")

	reported := startWatcher(t, dir)
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "animals")))

	waitFor(t, reported, "animals/cat.txt")
}

func writeTree(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	}
}
