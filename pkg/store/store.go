// Package store provides the content stores backing the wildcard index.
//
// Every store keeps the full mapping in memory so reads never touch disk.
// Durable stores write through on each mutation and roll the in-memory change
// back when the write fails.
package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bastiangx/wildserve/pkg/wildcard"
)

// Store is a wildcard.ContentStore that can be swapped wholesale and closed.
type Store interface {
	wildcard.ContentStore

	// Replace swaps the whole mapping, used when wildcards are reloaded from disk
	Replace(entries map[string]string) error

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend. path is ignored by the memory backend.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// Memory is a non-durable store.
type Memory struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.entries[key]
	return content, ok
}

func (m *Memory) Set(key, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = content
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

func (m *Memory) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyEntries(m.entries)
}

func (m *Memory) Replace(entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = copyEntries(entries)
	return nil
}

func (m *Memory) Close() error { return nil }

// setKey changes a single key under the write lock and calls persist with the
// result. A nil content deletes the key. A persist error restores the key alone,
// so no copy of the mapping is taken.
func (m *Memory) setKey(key string, content *string, persist func(entries map[string]string) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, had := m.entries[key]
	if content == nil {
		delete(m.entries, key)
	} else {
		m.entries[key] = *content
	}
	if err := persist(m.entries); err != nil {
		if had {
			m.entries[key] = previous
		} else {
			delete(m.entries, key)
		}
		return err
	}
	return nil
}

// swap persists next and installs it as the mapping when that succeeds.
func (m *Memory) swap(next map[string]string, persist func(entries map[string]string) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := persist(next); err != nil {
		return err
	}
	m.entries = next
	return nil
}

func copyEntries(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
