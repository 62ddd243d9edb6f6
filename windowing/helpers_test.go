package windowing_test

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/chatmem/memory"
)

// runeCounter charges one token per rune and nothing else, so test fixtures
// can state costs as string lengths.
type runeCounter struct{}

func (runeCounter) Encoding() string { return "runes" }
func (runeCounter) Exact() bool      { return true }
func (runeCounter) CountEntry(e memory.Entry) int {
	return utf8.RuneCountInString(e.Content)
}
func (r runeCounter) Count(seq []memory.Entry) int {
	total := 0
	for _, e := range seq {
		total += r.CountEntry(e)
	}
	return total
}

// wordEncoder stands in for a BPE encoder: one token per whitespace-separated word.
type wordEncoder struct{}

func (wordEncoder) CountTokens(text string) int { return len(strings.Fields(text)) }

// text returns a string of n runes.
func text(n int) string { return strings.Repeat("x", n) }

// contents flattens a sequence into role:content strings for order checks.
func contents(seq []memory.Entry) []string {
	out := make([]string, len(seq))
	for i, e := range seq {
		out[i] = string(e.Role) + ":" + e.Content
	}
	return out
}
