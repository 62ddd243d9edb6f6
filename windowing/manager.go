package windowing

import (
	"log/slog"

	"github.com/petasbytes/chatmem/memory"
)

// EvictionHook observes each entry removed by Enforce, with its token cost.
type EvictionHook func(e memory.Entry, tokens int)

// Result summarizes one Enforce call.
//
// Fields:
//   - Total: count of the sequence after enforcement.
//   - Limit: the effective limit enforced.
//   - Evicted: removed entries, oldest first.
//   - EvictedTokens: summed cost of Evicted.
type Result struct {
	Total         int
	Limit         int
	Evicted       []memory.Entry
	EvictedTokens int
}

// Manager applies the eviction policy with a fixed counter.
type Manager struct {
	counter TokenCounter
	onEvict EvictionHook
	log     *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEvictionHook registers fn to run after every removal.
func WithEvictionHook(fn EvictionHook) ManagerOption {
	return func(m *Manager) { m.onEvict = fn }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager counting with c.
func NewManager(c TokenCounter, opts ...ManagerOption) *Manager {
	m := &Manager{counter: c, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// Counter returns the counter the manager was built with.
func (m *Manager) Counter() TokenCounter { return m.counter }

// Count returns the cost of t's full sequence.
func (m *Manager) Count(t *memory.Transcript) int {
	return m.counter.Count(t.Sequence())
}

// Check reports whether the system entry alone fits b.
func (m *Manager) Check(t *memory.Transcript, b Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	limit := b.EffectiveLimit()
	if sys := m.counter.Count([]memory.Entry{t.System()}); sys > limit {
		return &BudgetUnsatisfiableError{SystemTokens: sys, Limit: limit}
	}
	return nil
}

// Enforce removes the oldest history entries of t until its sequence fits b.
// Removed entries are discarded, reported through the hook and returned in
// the Result. When the system entry alone cannot fit, Enforce fails with
// *BudgetUnsatisfiableError and leaves history untouched.
func (m *Manager) Enforce(t *memory.Transcript, b Budget) (Result, error) {
	res := Result{Limit: b.EffectiveLimit()}
	if err := m.Check(t, b); err != nil {
		res.Total = m.Count(t)
		return res, err
	}

	total := m.Count(t)
	for remaining := t.Len(); remaining > 0 && total > res.Limit; remaining-- {
		e, err := t.PopOldest()
		if err != nil {
			return res, err
		}
		tokens := cost(m.counter, e)
		res.Evicted = append(res.Evicted, e)
		res.EvictedTokens += tokens
		m.log.Debug("evicted entry",
			"component", "windowing", "role", string(e.Role), "tokens", tokens, "history", t.Len())
		if m.onEvict != nil {
			m.onEvict(e, tokens)
		}
		total = m.Count(t)
	}
	res.Total = total

	if total > res.Limit {
		// Unreachable for monotonic counters; guards custom ones.
		sys := m.counter.Count([]memory.Entry{t.System()})
		return res, &BudgetUnsatisfiableError{SystemTokens: sys, Limit: res.Limit}
	}
	m.log.Debug("window enforced",
		"component", "windowing", "total", total, "limit", res.Limit, "evicted", len(res.Evicted))
	return res, nil
}
