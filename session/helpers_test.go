package session_test

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/session"
)

// runeCounter charges one token per rune so fixtures state costs as lengths.
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

// text returns a string of n runes starting with prefix.
func text(prefix string, n int) string {
	return prefix + strings.Repeat("x", n-utf8.RuneCountInString(prefix))
}

// recorder is an Observer that keeps every event in order.
type recorder struct {
	mu      sync.Mutex
	events  []string
	reports []session.TurnReport
	ctxIDs  []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) SessionStarted(session.Stats, error) { r.add("started") }

func (r *recorder) EntryEvicted(_ context.Context, e memory.Entry, _ int) {
	r.add("evicted:" + e.Content)
}

func (r *recorder) TurnFinished(ctx context.Context, rep session.TurnReport) {
	r.add("turn:" + string(rep.Outcome))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	id, _ := session.TurnIDFromContext(ctx)
	r.ctxIDs = append(r.ctxIDs, id)
}

func (r *recorder) HistoryCleared(session.Stats) { r.add("cleared") }
