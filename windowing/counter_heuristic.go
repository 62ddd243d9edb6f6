package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/chatmem/memory"
)

const (
	// runesPerToken approximates English text under BPE encoders.
	runesPerToken = 4
	// entryOverhead approximates role framing; changing it requires updating the guard test.
	entryOverhead = 4
)

// HeuristicCounter is the deterministic fallback estimator.
// Rules:
//   - content: ceil(runes / 4)
//   - plus a fixed per-entry overhead, so non-empty content never costs zero
//
// Cause is set when the counter replaced an exact encoder that failed to load.
type HeuristicCounter struct {
	Cause error
}

func (HeuristicCounter) Encoding() string { return HeuristicEncoding }

func (HeuristicCounter) Exact() bool { return false }

// FallbackCause reports why the exact encoder was not used.
func (h HeuristicCounter) FallbackCause() error { return h.Cause }

func (HeuristicCounter) CountEntry(e memory.Entry) int {
	runes := utf8.RuneCountInString(e.Content)
	return (runes+runesPerToken-1)/runesPerToken + entryOverhead
}

func (h HeuristicCounter) Count(seq []memory.Entry) int {
	return sum(h, seq)
}
