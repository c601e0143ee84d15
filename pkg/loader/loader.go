// Package loader turns a directory of wildcard files into index entries.
//
// Each file matching the pattern (by default DefaultPattern) becomes one
// wildcard: the key is the file stem wrapped in double underscores and the
// content is the file's text, lower-cased. When two files share a stem the
// last one in sorted path order wins.
//
//	wildcards/animals/cat.txt -> __cat__
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// DefaultPattern selects wildcard files anywhere under the directory.
const DefaultPattern = "**/*.txt"

// Replacer is the part of a content store the loader writes to.
type Replacer interface {
	Replace(entries map[string]string) error
	Keys() []string
}

// Indexer is the part of the wildcard index the loader drives.
type Indexer interface {
	Rebuild()
	Reload(replace func() error) error
	UpdateEntry(key, content string) error
	RemoveEntry(key string) error
}

// KeyFromPath derives the wildcard key from a file path.
func KeyFromPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return "__" + stem + "__"
}

// Load reads every wildcard file under dir. A missing dir yields no entries.
// Files that cannot be read are skipped.
func Load(dir, pattern string) (map[string]string, error) {
	matches, err := scan(dir, pattern)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string)
	for _, rel := range matches {
		content, err := readWildcard(dir, rel)
		if err != nil {
			log.Warnf("Skipping wildcard file %s: %v", rel, err)
			continue
		}
		key := KeyFromPath(rel)
		if _, dup := entries[key]; dup {
			log.Debugf("Wildcard %s redefined by %s", key, rel)
		}
		entries[key] = content
	}

	log.Debugf("Loaded %d wildcards from %s", len(entries), dir)
	return entries, nil
}

// scan returns the sorted slash-separated paths under dir matching pattern.
func scan(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid wildcard pattern %q", pattern)
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warnf("Wildcard dir %s does not exist", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat wildcard dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("wildcard dir %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func readWildcard(dir, rel string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	return strings.ToLower(string(data)), nil
}

// Reload replaces the store with the files under dir and rebuilds the index.
// Readers of idx see either the old or the new wildcards, never a mix.
func Reload(dir, pattern string, store Replacer, idx Indexer) error {
	entries, err := Load(dir, pattern)
	if err != nil {
		return err
	}
	return idx.Reload(func() error {
		if err := store.Replace(entries); err != nil {
			return fmt.Errorf("replace wildcard cache: %w", err)
		}
		return nil
	})
}

// EnsureInitialized fills an empty store from disk, otherwise it only rebuilds
// the index from what the store already holds.
func EnsureInitialized(dir, pattern string, store Replacer, idx Indexer) error {
	if len(store.Keys()) == 0 {
		log.Debug("Wildcard cache empty, loading from disk")
		return Reload(dir, pattern, store, idx)
	}
	idx.Rebuild()
	return nil
}

// ApplyChanges pushes changed files (relative to dir) into the index one by one.
// Each key is resolved against every file sharing its stem, so deleting or
// editing a shadowed file leaves the winning one in place. Keys with no file
// left are removed. All errors are joined.
func ApplyChanges(dir, pattern string, idx Indexer, changed []string) error {
	matches, err := scan(dir, pattern)
	if err != nil {
		return err
	}
	winners := make(map[string]string, len(matches))
	for _, rel := range matches {
		winners[KeyFromPath(rel)] = rel
	}

	var errs []error
	applied := make(map[string]struct{}, len(changed))
	for _, rel := range changed {
		key := KeyFromPath(rel)
		if _, done := applied[key]; done {
			continue
		}
		applied[key] = struct{}{}

		winner, ok := winners[key]
		if !ok {
			err = idx.RemoveEntry(key)
		} else {
			var content string
			if content, err = readWildcard(dir, winner); err == nil {
				err = idx.UpdateEntry(key, content)
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		log.Debugf("Applied change %s -> %s (from %s)", rel, key, winner)
	}
	return errors.Join(errs...)
}
