package wildcard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Options tunes an Index.
type Options struct {
	// QueryCacheSize is the number of query results kept in memory.
	// Zero disables caching.
	QueryCacheSize int
}

// Index keeps three derived views over a ContentStore:
// word -> keys, key -> words and a sorted vocabulary of every indexed word.
//
// Removing the last key of a word deletes its bucket but leaves the word in the
// vocabulary; queries skip such entries and Rebuild drops them.
// All structures are guarded by a single lock so readers always see a consistent snapshot.
type Index struct {
	store    ContentStore
	inverted map[string]wordSet
	forward  map[string]wordSet
	vocab    []string
	keys     *patricia.Trie
	cache    *lru.Cache[string, []string]
	mu       sync.RWMutex
}

// New creates an empty index bound to store. Call Rebuild to populate it.
func New(store ContentStore, opts Options) (*Index, error) {
	if store == nil {
		return nil, errors.New("wildcard: nil content store")
	}
	idx := &Index{
		store:    store,
		inverted: make(map[string]wordSet),
		forward:  make(map[string]wordSet),
		keys:     patricia.NewTrie(),
	}
	if opts.QueryCacheSize > 0 {
		cache, err := lru.New[string, []string](opts.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("wildcard: query cache: %w", err)
		}
		idx.cache = cache
	}
	return idx, nil
}

// Rebuild scans the whole store and replaces every derived structure.
// Content is expected to be lower-cased already.
func (idx *Index) Rebuild() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.rebuild()
}

// Reload runs replace, which swaps the store contents, and rebuilds from the
// result without releasing the write lock, so readers never see the new store
// with the old structures. A replace failure leaves the index untouched.
func (idx *Index) Reload(replace func() error) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := replace(); err != nil {
		return err
	}
	idx.rebuild()
	return nil
}

// rebuild does the work of Rebuild. Callers hold the write lock.
func (idx *Index) rebuild() {
	snapshot := idx.store.Snapshot()

	inverted := make(map[string]wordSet)
	forward := make(map[string]wordSet, len(snapshot))
	keys := patricia.NewTrie()

	for key, content := range snapshot {
		words := tokenize(content)
		forward[key] = words
		for w := range words {
			bucket, ok := inverted[w]
			if !ok {
				bucket = make(wordSet)
				inverted[w] = bucket
			}
			bucket[key] = struct{}{}
		}
		keys.Insert(patricia.Prefix(key), struct{}{})
	}

	vocab := make([]string, 0, len(inverted))
	for w := range inverted {
		vocab = append(vocab, w)
	}
	sort.Strings(vocab)

	idx.inverted = inverted
	idx.forward = forward
	idx.vocab = vocab
	idx.keys = keys
	idx.purgeCache()

	log.Debugf("Rebuilt wildcard index: keys=[%d] words=[%d]", len(forward), len(vocab))
}

// UpdateEntry applies new content for a single key, touching only the words
// that changed. Unknown keys are inserted. A store failure leaves the index unchanged.
func (idx *Index) UpdateEntry(key, content string) error {
	lower := strings.ToLower(content)
	newWords := tokenize(lower)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.Set(key, lower); err != nil {
		return fmt.Errorf("wildcard: store %s: %w", key, err)
	}
	added, removed := idx.applyDiff(key, newWords)
	idx.forward[key] = newWords
	idx.keys.Set(patricia.Prefix(key), struct{}{})
	idx.purgeCache()

	log.Debugf("Updated %s: +%d -%d words", key, added, removed)
	return nil
}

// RemoveEntry deletes key from the store and from every derived structure.
func (idx *Index) RemoveEntry(key string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.Delete(key); err != nil {
		return fmt.Errorf("wildcard: delete %s: %w", key, err)
	}
	_, removed := idx.applyDiff(key, nil)
	delete(idx.forward, key)
	idx.keys.Delete(patricia.Prefix(key))
	idx.purgeCache()

	log.Debugf("Removed %s: -%d words", key, removed)
	return nil
}

// applyDiff moves key from the buckets of words it lost into the buckets of
// words it gained. Callers hold the write lock.
func (idx *Index) applyDiff(key string, newWords wordSet) (added, removed int) {
	oldWords := idx.forward[key]

	toRemove := difference(oldWords, newWords)
	for _, w := range toRemove {
		bucket, ok := idx.inverted[w]
		if !ok {
			continue
		}
		delete(bucket, key)
		if len(bucket) == 0 {
			// vocab keeps the word, see Index doc
			delete(idx.inverted, w)
		}
	}

	toAdd := difference(newWords, oldWords)
	for _, w := range toAdd {
		bucket, ok := idx.inverted[w]
		if !ok {
			bucket = make(wordSet)
			idx.inverted[w] = bucket
			idx.vocab = insertVocab(idx.vocab, w)
		}
		bucket[key] = struct{}{}
	}
	return len(toAdd), len(toRemove)
}

func (idx *Index) purgeCache() {
	if idx.cache != nil {
		idx.cache.Purge()
	}
}

// Vocabulary returns a copy of the sorted vocabulary, stale entries included.
func (idx *Index) Vocabulary() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, len(idx.vocab))
	copy(out, idx.vocab)
	return out
}

// Words returns the sorted words indexed for key.
func (idx *Index) Words(key string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.forward[key].sorted()
}

// Keys returns every key in the store, sorted.
func (idx *Index) Keys() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.allKeys()
}

func (idx *Index) allKeys() []string {
	keys := idx.store.Keys()
	sort.Strings(keys)
	return keys
}

// Stats returns counters about the index.
func (idx *Index) Stats() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	stats := map[string]int{
		"keys":       len(idx.forward),
		"words":      len(idx.inverted),
		"vocabulary": len(idx.vocab),
		"stale":      len(idx.vocab) - len(idx.inverted),
	}
	if idx.cache != nil {
		stats["cachedQueries"] = idx.cache.Len()
	}
	return stats
}
