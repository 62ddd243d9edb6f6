package memory

import "sync"

// Role tags an Entry with the party that produced it.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Entry is a single role-tagged unit of conversation content.
// Role and Content never change after construction; the only mutable part is
// the memoized token cost, which is derived and ignored by Equal.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	cost *tokenCost
}

// tokenCost caches the cost of an entry under one encoding. It is shared by
// copies of the same Entry so a cost computed once sticks to the value.
type tokenCost struct {
	mu       sync.Mutex
	encoding string
	tokens   int
	set      bool
}

// NewEntry returns an Entry with an empty cost cache.
func NewEntry(role Role, content string) Entry {
	return Entry{Role: role, Content: content, cost: &tokenCost{}}
}

func System(content string) Entry    { return NewEntry(RoleSystem, content) }
func User(content string) Entry      { return NewEntry(RoleUser, content) }
func Assistant(content string) Entry { return NewEntry(RoleAssistant, content) }

// TokenCost returns the cost of e under encoding, calling count at most once
// per encoding and remembering the answer. Entries built as struct literals
// (no cache) are counted on every call.
func (e Entry) TokenCost(encoding string, count func(Entry) int) int {
	if e.cost == nil {
		return count(e)
	}
	e.cost.mu.Lock()
	defer e.cost.mu.Unlock()
	if e.cost.set && e.cost.encoding == encoding {
		return e.cost.tokens
	}
	n := count(e)
	e.cost.encoding, e.cost.tokens, e.cost.set = encoding, n, true
	return n
}

// Equal compares role and content only.
func (e Entry) Equal(o Entry) bool {
	return e.Role == o.Role && e.Content == o.Content
}
