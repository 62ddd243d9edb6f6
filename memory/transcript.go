package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistory is returned when popping from a history with no entries.
	// The system entry is never eligible for removal.
	ErrEmptyHistory = errors.New("memory: history is empty")

	// ErrSystemRole is returned when a system entry is appended to history.
	ErrSystemRole = errors.New("memory: system entries cannot be appended to history")
)

// Transcript is the ordered state of one conversation: a fixed system entry
// plus the user/assistant history. It is not safe for concurrent use; the
// owning session serializes access.
type Transcript struct {
	system  Entry
	history []Entry
}

// NewTranscript starts a transcript whose system entry carries prompt.
func NewTranscript(prompt string) *Transcript {
	return &Transcript{system: System(prompt)}
}

// System returns the system entry.
func (t *Transcript) System() Entry { return t.system }

// Len returns the number of history entries (the system entry is not counted).
func (t *Transcript) Len() int { return len(t.history) }

// History returns a copy of the history, oldest first.
func (t *Transcript) History() []Entry {
	out := make([]Entry, len(t.history))
	copy(out, t.history)
	return out
}

// Sequence returns [system] ++ history, the exact sequence counted against a
// budget and sent to the model. The slice is a copy; mutating it has no effect.
func (t *Transcript) Sequence() []Entry {
	out := make([]Entry, 0, len(t.history)+1)
	out = append(out, t.system)
	return append(out, t.history...)
}

// Append adds e to the end of history.
func (t *Transcript) Append(e Entry) error {
	switch e.Role {
	case RoleUser, RoleAssistant:
	case RoleSystem:
		return ErrSystemRole
	default:
		return fmt.Errorf("memory: unknown role %q", e.Role)
	}
	if e.cost == nil {
		e.cost = &tokenCost{}
	}
	t.history = append(t.history, e)
	return nil
}

// PopOldest removes and returns the oldest history entry.
func (t *Transcript) PopOldest() (Entry, error) {
	if len(t.history) == 0 {
		return Entry{}, ErrEmptyHistory
	}
	e := t.history[0]
	t.history[0] = Entry{}
	t.history = t.history[1:]
	return e, nil
}

// PopLast removes and returns the most recently appended entry.
func (t *Transcript) PopLast() (Entry, error) {
	n := len(t.history)
	if n == 0 {
		return Entry{}, ErrEmptyHistory
	}
	e := t.history[n-1]
	t.history[n-1] = Entry{}
	t.history = t.history[:n-1]
	return e, nil
}

// RestoreOldest puts previously popped entries back at the front of history,
// keeping the order they are given in. It is the inverse of a run of PopOldest
// calls and is used to undo evictions made for a turn that failed.
func (t *Transcript) RestoreOldest(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	h := make([]Entry, 0, len(entries)+len(t.history))
	h = append(h, entries...)
	t.history = append(h, t.history...)
}

// Reset drops all history, keeping the system entry.
func (t *Transcript) Reset() {
	t.history = nil
}
