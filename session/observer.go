package session

import (
	"context"
	"time"

	"github.com/petasbytes/chatmem/memory"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeRejected   Outcome = "rejected"
)

// TurnReport describes one finished turn.
type TurnReport struct {
	TurnID   string
	Outcome  Outcome
	Greeting bool
	// UserText is empty for greetings.
	UserText string
	// Reply is set only for committed turns.
	Reply         Reply
	Evicted       int
	EvictedTokens int
	// Restored counts evicted entries put back by a rollback.
	Restored int
	Stats    Stats
	Duration time.Duration
	Err      error
}

// Observer receives session lifecycle events. Calls happen synchronously on
// the goroutine running the turn.
type Observer interface {
	SessionStarted(s Stats, encoderErr error)
	EntryEvicted(ctx context.Context, e memory.Entry, tokens int)
	TurnFinished(ctx context.Context, r TurnReport)
	HistoryCleared(s Stats)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) SessionStarted(Stats, error) {}
func (NopObserver) EntryEvicted(context.Context, memory.Entry, int) {}
func (NopObserver) TurnFinished(context.Context, TurnReport) {}
func (NopObserver) HistoryCleared(Stats) {}

type multiObserver []Observer

// Observers fans events out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multiObserver) SessionStarted(s Stats, encoderErr error) {
	for _, o := range m {
		o.SessionStarted(s, encoderErr)
	}
}

func (m multiObserver) EntryEvicted(ctx context.Context, e memory.Entry, tokens int) {
	for _, o := range m {
		o.EntryEvicted(ctx, e, tokens)
	}
}

func (m multiObserver) TurnFinished(ctx context.Context, r TurnReport) {
	for _, o := range m {
		o.TurnFinished(ctx, r)
	}
}

func (m multiObserver) HistoryCleared(s Stats) {
	for _, o := range m {
		o.HistoryCleared(s)
	}
}
