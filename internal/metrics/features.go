// Package metrics derives numeric signals from chat turns: text features for
// local events and Prometheus series for scraping.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features are size measures of a message. They stand in for message text
// wherever text must not be recorded.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures measures s. Words split on Unicode whitespace; an empty
// string has zero lines, otherwise lines are 1 plus the count of '\n'.
func CountFeatures(s string) Features {
	f := Features{Bytes: len(s), Runes: utf8.RuneCountInString(s), Words: len(strings.Fields(s))}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}

// Fields renders f for a JSON event payload.
func (f Features) Fields() map[string]any {
	return map[string]any{
		"bytes": f.Bytes,
		"runes": f.Runes,
		"words": f.Words,
		"lines": f.Lines,
	}
}
