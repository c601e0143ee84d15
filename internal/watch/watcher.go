// Package watch reports changed wildcard files after a quiet period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/wildserve/internal/logger"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// editor swap files and VCS noise
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Dir is the root of the wildcard tree
	Dir string

	// Pattern selects which files report changes, e.g. "**/*.txt".
	// Empty reports every non-ignored file.
	Pattern string

	// Debounce is the quiet period before OnChange fires
	Debounce time.Duration

	// OnChange receives the changed paths relative to Dir, sorted
	OnChange func(ctx context.Context, changed []string) error
}

// Watcher monitors Dir recursively. Run must be called once.
//
// Directories created or moved into the tree report the matching files they
// already hold; directories removed or moved out report the files known under them.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	log      *log.Logger
	baseDir  string
	debounce time.Duration
	started  atomic.Bool

	// known holds matching files under baseDir, relative. Owned by Run.
	known map[string]struct{}

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	fire    func()
}

// New validates cfg and registers every directory under Dir.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: dir required")
	}
	if cfg.Pattern != "" && !doublestar.ValidatePattern(cfg.Pattern) {
		return nil, fmt.Errorf("watch: invalid pattern %q", cfg.Pattern)
	}
	absBase, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		log:      logger.New("watch"),
		baseDir:  absBase,
		debounce: debounce,
		known:    make(map[string]struct{}),
		pending:  make(map[string]struct{}),
	}
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: create %s: %w", w.baseDir, err)
	}
	err = w.addTree(w.baseDir, func(rel string) {
		w.known[rel] = struct{}{}
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, coalescing events into OnChange calls.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	w.fire = func() {
		if ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(w.pending))
		clear(w.pending)
		w.mu.Unlock()

		w.log.Debugf("%d wildcard files changed", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.log.Errorf("Applying changes: %v", err)
			}
		}
	}

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.log.Warnf("Closing fsnotify: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			w.handle(evt)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			w.log.Errorf("fsnotify: %v", err)
		}
	}
}

func (w *Watcher) handle(evt fsnotify.Event) {
	rel, err := filepath.Rel(w.baseDir, evt.Name)
	if err != nil || rel == "." {
		return
	}
	if evt.Has(fsnotify.Create) && w.dirCreated(evt.Name) {
		return
	}
	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		if w.dirGone(evt.Name, rel) {
			return
		}
	}
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return
	}
	if !w.matches(rel) {
		return
	}

	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		delete(w.known, rel)
	} else {
		w.known[rel] = struct{}{}
	}
	w.queue(rel)
}

// queue records changed paths and restarts the quiet period.
func (w *Watcher) queue(rels ...string) {
	if len(rels) == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, rel := range rels {
		w.pending[rel] = struct{}{}
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
	} else {
		w.timer.Reset(w.debounce)
	}
}

// addTree watches root and every directory below it, calling onFile with each
// matching file relative to baseDir.
func (w *Watcher) addTree(root string, onFile func(rel string)) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Warnf("Skipping inaccessible path %q: %v", path, err)
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil
		}
		if !d.IsDir() {
			if w.matches(rel) {
				onFile(rel)
			}
			return nil
		}
		if w.ignored(rel + "/") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
}

// dirCreated extends the watch to a directory created or moved in after
// startup and queues the files it already holds.
func (w *Watcher) dirCreated(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	var found []string
	err = w.addTree(path, func(rel string) {
		w.known[rel] = struct{}{}
		found = append(found, rel)
	})
	if err != nil {
		w.log.Warnf("Adding new directory %q: %v", path, err)
	}
	w.queue(found...)
	return true
}

// dirGone queues every known file under a removed or moved-out directory.
func (w *Watcher) dirGone(path, rel string) bool {
	prefix := rel + string(filepath.Separator)
	var gone []string
	for k := range w.known {
		if strings.HasPrefix(k, prefix) {
			gone = append(gone, k)
		}
	}
	if len(gone) == 0 {
		return false
	}
	for _, k := range gone {
		delete(w.known, k)
	}
	// a renamed directory keeps its inotify watch under the old name
	_ = w.fsw.Remove(path)
	w.queue(gone...)
	return true
}
func (w *Watcher) ignored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range defaultIgnores {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Watcher) matches(rel string) bool {
	if w.ignored(rel) {
		return false
	}
	if w.cfg.Pattern == "" {
		return true
	}
	matched, err := doublestar.Match(w.cfg.Pattern, filepath.ToSlash(rel))
	return err == nil && matched
}
