package wildcard

import (
	"slices"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

const (
	prefixQuery = "w\x00"
	phraseQuery = "p\x00"
)

// SuggestPrefix returns the keys whose content contains a word starting with word.
// An empty word matches every key.
func (idx *Index) SuggestPrefix(word string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.cached(prefixQuery+word, func() []string {
		return idx.suggestPrefix(word)
	})
}

// SuggestPhrase returns the keys matching every word of phrase by prefix whose
// content also holds the whole phrase verbatim. An empty phrase matches every key.
func (idx *Index) SuggestPhrase(phrase string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.cached(phraseQuery+phrase, func() []string {
		return idx.suggestPhrase(phrase)
	})
}

// Suggest answers the last typed word and the last few typed words together.
func (idx *Index) Suggest(lastWord, lastFewWords string) ([]string, []string) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	wordKeys := idx.cached(prefixQuery+lastWord, func() []string {
		return idx.suggestPrefix(lastWord)
	})
	phraseKeys := idx.cached(phraseQuery+lastFewWords, func() []string {
		return idx.suggestPhrase(lastFewWords)
	})
	return wordKeys, phraseKeys
}

// SuggestKeys completes wildcard key names, e.g. "__ca" -> "__cat__".
func (idx *Index) SuggestKeys(prefix string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if prefix == "" {
		return idx.allKeys()
	}
	var out []string
	_ = idx.keys.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		out = append(out, string(p))
		return nil
	})
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func (idx *Index) suggestPrefix(word string) []string {
	if word == "" {
		return idx.allKeys()
	}
	return idx.prefixMatches(strings.ToLower(word)).sorted()
}

func (idx *Index) suggestPhrase(phrase string) []string {
	lower := strings.ToLower(phrase)
	words := strings.Fields(lower)
	if len(words) == 0 {
		return idx.allKeys()
	}

	var candidates wordSet
	for _, w := range words {
		matches := idx.prefixMatches(w)
		if candidates == nil {
			candidates = matches
		} else {
			intersect(candidates, matches)
		}
		if len(candidates) == 0 {
			return []string{}
		}
	}

	// the word index has no notion of order or adjacency
	out := make([]string, 0, len(candidates))
	for key := range candidates {
		if content, ok := idx.store.Get(key); ok && strings.Contains(content, lower) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// prefixMatches unions the buckets of every vocabulary word starting with prefix.
// Vocabulary words without a bucket contribute nothing.
func (idx *Index) prefixMatches(prefix string) wordSet {
	matches := make(wordSet)
	for i := sort.SearchStrings(idx.vocab, prefix); i < len(idx.vocab); i++ {
		w := idx.vocab[i]
		if !strings.HasPrefix(w, prefix) {
			break
		}
		for key := range idx.inverted[w] {
			matches[key] = struct{}{}
		}
	}
	return matches
}

// cached serves a query result from the LRU cache, computing it on a miss.
// Callers hold at least the read lock; writers purge the cache under the write lock.
func (idx *Index) cached(query string, compute func() []string) []string {
	if idx.cache == nil {
		return compute()
	}
	if hit, ok := idx.cache.Get(query); ok {
		return slices.Clone(hit)
	}
	result := compute()
	idx.cache.Add(query, slices.Clone(result))
	return result
}
