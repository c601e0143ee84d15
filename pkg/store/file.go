package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// File persists the mapping as a single msgpack file, rewritten on every change.
// Each write costs a full encode of the mapping; use SQLite for large sets.
type File struct {
	*Memory
	path string
}

// OpenFile loads the store at path. A missing file yields an empty store.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file store path required")
	}
	f := &File{Memory: NewMemory(), path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("No wildcard cache at %s, starting empty", path)
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read wildcard cache %s: %w", path, err)
	}

	entries := make(map[string]string)
	if len(data) > 0 {
		if err := msgpack.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("decode wildcard cache %s: %w", path, err)
		}
	}
	f.entries = entries
	log.Debugf("Loaded %d wildcards from cache %s", len(entries), path)
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Set(key, content string) error {
	return f.setKey(key, &content, f.save)
}

func (f *File) Delete(key string) error {
	return f.setKey(key, nil, f.save)
}

func (f *File) Replace(entries map[string]string) error {
	return f.swap(copyEntries(entries), f.save)
}

// save writes entries next to the target and renames over it.
func (f *File) save(entries map[string]string) error {
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode wildcard cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".wildcards-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
