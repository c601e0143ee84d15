package wildcard

import (
	"sort"
	"strings"
)

type wordSet map[string]struct{}

// tokenize splits content into its distinct whitespace-delimited words.
func tokenize(content string) wordSet {
	fields := strings.Fields(content)
	words := make(wordSet, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

// difference returns the members of a that are not in b.
func difference(a, b wordSet) []string {
	var out []string
	for w := range a {
		if _, ok := b[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}

// intersect keeps only the members of dst also present in src.
func intersect(dst, src wordSet) {
	for k := range dst {
		if _, ok := src[k]; !ok {
			delete(dst, k)
		}
	}
}

func (s wordSet) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// insertVocab places word at its sorted position. Words already present are left alone.
func insertVocab(vocab []string, word string) []string {
	i := sort.SearchStrings(vocab, word)
	if i < len(vocab) && vocab[i] == word {
		return vocab
	}
	vocab = append(vocab, "")
	copy(vocab[i+1:], vocab[i:])
	vocab[i] = word
	return vocab
}
