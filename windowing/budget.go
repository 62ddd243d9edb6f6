package windowing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBudget is returned by Budget.Validate.
	ErrInvalidBudget = errors.New("windowing: invalid budget")

	// ErrBudgetUnsatisfiable matches any *BudgetUnsatisfiableError via errors.Is.
	ErrBudgetUnsatisfiable = errors.New("windowing: budget cannot hold the system entry")
)

// Budget is the token ceiling for one request, net of the reply reserve.
type Budget struct {
	MaxContextTokens       int `yaml:"max_context_tokens"`
	ReservedResponseTokens int `yaml:"reserved_response_tokens"`
}

// EffectiveLimit is the most the outgoing sequence may cost.
func (b Budget) EffectiveLimit() int {
	return b.MaxContextTokens - b.ReservedResponseTokens
}

// Validate checks the shape of b. Whether the system entry fits is checked
// separately, once a counter is known.
func (b Budget) Validate() error {
	if b.MaxContextTokens <= 0 {
		return fmt.Errorf("%w: max_context_tokens must be > 0, got %d", ErrInvalidBudget, b.MaxContextTokens)
	}
	if b.ReservedResponseTokens < 0 {
		return fmt.Errorf("%w: reserved_response_tokens must be >= 0, got %d", ErrInvalidBudget, b.ReservedResponseTokens)
	}
	return nil
}

// BudgetUnsatisfiableError means the system entry alone exceeds the effective
// limit. No amount of eviction can fix it; the budget must change.
type BudgetUnsatisfiableError struct {
	SystemTokens int
	Limit        int
}

func (e *BudgetUnsatisfiableError) Error() string {
	return fmt.Sprintf("windowing: system entry costs %d tokens, effective limit is %d", e.SystemTokens, e.Limit)
}

func (e *BudgetUnsatisfiableError) Is(target error) bool {
	return target == ErrBudgetUnsatisfiable
}
