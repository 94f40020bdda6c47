// Package chunker splits long complex-script runs into word-safe pieces.
package chunker

import (
	"strings"
	"unicode"

	"github.com/muesli/reflow/ansi"
)

// DefaultWidth is the chunk budget in display cells used when none is configured.
const DefaultWidth = 90

// NeedsChunking reports whether text contains Devanagari runes.
func NeedsChunking(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	return false
}

// Width returns the display width of s in cells.
func Width(s string) int {
	return ansi.PrintableRuneWidth(s)
}

// Chunk greedily packs whitespace-separated words into pieces no wider than
// maxWidth. Words are never split; a word wider than the budget becomes its own
// piece. Text without Devanagari is returned unchanged. maxWidth <= 0 disables
// the budget.
func Chunk(text string, maxWidth int) []string {
	if !NeedsChunking(text) {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var (
		chunks  []string
		current strings.Builder
		width   int
	)
	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		width = 0
	}
	for _, w := range words {
		ww := Width(w)
		if current.Len() > 0 && width+1+ww > maxWidth {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
			width++
		}
		current.WriteString(w)
		width += ww
	}
	flush()
	return chunks
}
