// Package session drives turns of one conversation against a ModelClient.
//
// Invariant:
//   - A user entry is committed only together with the assistant reply that
//     answered it. When the model call fails, the user entry is popped and any
//     entries evicted for that turn are restored, so the transcript is exactly
//     what it was before the turn began.
//
// Flow:
//
//	append(user) -> enforce(budget) -> Send([system] ++ history)
//	  ok:   append(assistant)            Idle
//	  fail: pop(user), restore(evicted)  Idle, *ModelCallError returned
//
// A Session handles one turn at a time. Calls that overlap an in-flight turn
// fail with ErrTurnInProgress; callers that share a session must serialize.
package session
