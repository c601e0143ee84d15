// Package wildcard is the core, keeping the inverted index, forward index and
// sorted vocabulary used to suggest wildcard keys while a prompt is typed.
package wildcard

// ContentStore is the authoritative key -> content mapping the index reads on
// rebuild and writes into on incremental updates. Implementations own persistence.
type ContentStore interface {
	// Get returns the stored content for key
	Get(key string) (string, bool)

	// Set stores content under key, persisting it if the store is durable
	Set(key, content string) error

	// Delete removes key from the store
	Delete(key string) error

	// Keys returns every stored key
	Keys() []string

	// Snapshot returns a copy of the whole mapping
	Snapshot() map[string]string
}

// ISuggester defines the interface for wildcard suggestion engines
type ISuggester interface {
	// SuggestPrefix returns keys whose content has a word starting with word
	SuggestPrefix(word string) []string

	// SuggestPhrase returns keys whose content matches the whole phrase
	SuggestPhrase(phrase string) []string

	// Suggest runs both lookups against one consistent snapshot
	Suggest(lastWord, lastFewWords string) ([]string, []string)

	// SuggestKeys completes wildcard key names
	SuggestKeys(prefix string) []string

	// UpdateEntry replaces the content of a single key
	UpdateEntry(key, content string) error

	// RemoveEntry drops a key from the store and the index
	RemoveEntry(key string) error

	// Rebuild recreates every derived structure from the store
	Rebuild()

	// Reload swaps the store contents via replace and rebuilds atomically
	Reload(replace func() error) error

	// Stats returns counters about the index
	Stats() map[string]int
}

var _ ISuggester = (*Index)(nil)
