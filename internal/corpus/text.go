// Package corpus folds accepted submissions into the shared corpus artifacts.
package corpus

import (
	"strings"
	"unicode/utf8"
)

// Flatten collapses every whitespace run, newlines included, to one space and trims the result.
func Flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var sentenceBreaks = strings.NewReplacer(". ", ".\n", "! ", "!\n", "? ", "?\n")

// WrapSentences puts each sentence of flattened text on its own line.
// The space after a terminal '.', '!' or '?' becomes a newline and any trailing newline is dropped.
func WrapSentences(flat string) string {
	return strings.TrimRight(sentenceBreaks.Replace(flat), "\n")
}

// Counts are the size statistics stored with every metadata record.
type Counts struct {
	Chars int
	Words int
}

// Count measures text after trimming surrounding whitespace. Internal spacing is kept,
// so chars counts every code point between the first and last non-space character.
func Count(text string) Counts {
	trimmed := strings.TrimSpace(text)
	return Counts{
		Chars: utf8.RuneCountInString(trimmed),
		Words: len(strings.Fields(trimmed)),
	}
}
