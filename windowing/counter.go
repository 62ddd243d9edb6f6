package windowing

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/petasbytes/chatmem/memory"
)

// ErrEncoderUnavailable marks a failed attempt to load an exact encoder.
// It never reaches session callers; it triggers the heuristic fallback.
var ErrEncoderUnavailable = errors.New("windowing: exact encoder unavailable")

// HeuristicEncoding names the fallback counter.
const HeuristicEncoding = "heuristic"

// TokenCounter estimates the input-token cost of entries.
type TokenCounter interface {
	// Encoding names the scheme; it keys memoized entry costs.
	Encoding() string
	// Exact reports whether counts come from a real encoder.
	Exact() bool
	// CountEntry returns the cost of a single entry, including framing.
	CountEntry(e memory.Entry) int
	// Count returns the cost of a whole sequence.
	Count(seq []memory.Entry) int
}

type counterOptions struct {
	loader EncoderLoader
	logger *slog.Logger
}

// CounterOption configures NewCounter.
type CounterOption func(*counterOptions)

// WithEncoderLoader replaces the tiktoken loader.
func WithEncoderLoader(l EncoderLoader) CounterOption {
	return func(o *counterOptions) { o.loader = l }
}

// WithCounterLogger sets the logger used to report a fallback.
func WithCounterLogger(l *slog.Logger) CounterOption {
	return func(o *counterOptions) { o.logger = l }
}

// NewCounter selects a counter for encoding. The exact encoder is tried once;
// on failure the fallback is logged as a warning and a HeuristicCounter
// carrying the cause is returned. An empty encoding or "heuristic" selects
// the heuristic directly.
func NewCounter(encoding string, opts ...CounterOption) TokenCounter {
	o := counterOptions{loader: LoadTiktoken, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if encoding == "" || encoding == HeuristicEncoding {
		return HeuristicCounter{}
	}
	enc, err := o.loader(encoding)
	if err != nil {
		cause := fmt.Errorf("%w: %s: %v", ErrEncoderUnavailable, encoding, err)
		o.logger.Warn("token encoder unavailable; using heuristic counter",
			"component", "windowing", "encoding", encoding, "error", err)
		return HeuristicCounter{Cause: cause}
	}
	return NewTiktokenCounter(encoding, enc)
}

// FallbackCause returns the load error behind a fallback counter, or nil when
// c was not produced by a failed encoder load.
func FallbackCause(c TokenCounter) error {
	if f, ok := c.(interface{ FallbackCause() error }); ok {
		return f.FallbackCause()
	}
	return nil
}

// cost returns the memoized cost of e under c.
func cost(c TokenCounter, e memory.Entry) int {
	return e.TokenCost(c.Encoding(), c.CountEntry)
}

func sum(c TokenCounter, seq []memory.Entry) int {
	total := 0
	for _, e := range seq {
		total += cost(c, e)
	}
	return total
}
