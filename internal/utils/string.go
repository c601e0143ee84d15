package utils

import "strings"

// SplitTyped returns the last word of the typed text and its last n words
// joined by single spaces. Trailing whitespace means a new word has begun,
// so the last word is empty.
func SplitTyped(text string, n int) (lastWord, lastFew string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", ""
	}
	if n < 1 {
		n = 1
	}
	if n > len(words) {
		n = len(words)
	}
	lastFew = strings.Join(words[len(words)-n:], " ")

	if strings.TrimRight(text, " \t\r\n") != text {
		return "", lastFew
	}
	return words[len(words)-1], lastFew
}
