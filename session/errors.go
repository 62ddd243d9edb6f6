package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTurnInProgress is returned when a call overlaps an in-flight turn.
	ErrTurnInProgress = errors.New("session: a turn is already in progress")

	// ErrMessageExceedsBudget is returned when a message cannot fit next to the
	// system entry even with an empty history. Nothing is appended or evicted.
	ErrMessageExceedsBudget = errors.New("session: message does not fit the budget")

	// ErrModelCallFailed matches any *ModelCallError via errors.Is.
	ErrModelCallFailed = errors.New("session: model call failed")

	// ErrEmptyReply is wrapped in a *ModelCallError when the backend returns no content.
	ErrEmptyReply = errors.New("session: model returned an empty reply")

	// ErrNoClient is returned by New without a ModelClient.
	ErrNoClient = errors.New("session: model client is required")
)

// ModelCallError reports a failed model call. The turn was rolled back.
// Err is the transport, backend or context error.
type ModelCallError struct {
	TurnID string
	Err    error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("session: model call failed (turn %s): %v", e.TurnID, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }

func (e *ModelCallError) Is(target error) bool { return target == ErrModelCallFailed }
