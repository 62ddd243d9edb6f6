// Package windowing keeps a transcript inside a token budget.
//
// Counting:
//   - TokenCounter is chosen once per session by NewCounter: the tiktoken
//     encoder when it loads, otherwise the rune-based HeuristicCounter.
//   - Every counter is monotonic: appending an entry never lowers the count.
//
// Eviction:
//   - Manager.Enforce drops the oldest history entries until
//     count([system] ++ history) <= Budget.EffectiveLimit().
//   - The system entry is never dropped. If it alone exceeds the limit the call
//     fails with *BudgetUnsatisfiableError before anything is removed.
//   - The loop runs at most len(history) times.
package windowing
