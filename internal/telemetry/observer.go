package telemetry

import (
	"context"

	"github.com/petasbytes/chatmem/internal/metrics"
	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/session"
)

const featuresVersion = "1"

// EventObserver turns session events into JSONL lines. Message text is never
// written; user messages are reduced to metrics.Features.
type EventObserver struct{}

var _ session.Observer = EventObserver{}

func statsFields(st session.Stats) map[string]any {
	return map[string]any{
		"message_count":    st.MessageCount,
		"token_count":      st.TokenCount,
		"tokens_available": st.TokensAvailable,
		"effective_limit":  st.EffectiveLimit,
		"encoding":         st.Encoding,
		"exact":            st.ExactEncoder,
	}
}

func (EventObserver) SessionStarted(st session.Stats, encoderErr error) {
	Emit("session_created", statsFields(st))
	if encoderErr != nil {
		Emit("encoder_fallback", map[string]any{
			"encoding": st.Encoding,
			"error":    encoderErr.Error(),
		})
	}
}

func (EventObserver) EntryEvicted(ctx context.Context, e memory.Entry, tokens int) {
	turnID, _ := session.TurnIDFromContext(ctx)
	Emit("entry_evicted", map[string]any{
		"turn_id": turnID,
		"role":    string(e.Role),
		"tokens":  tokens,
	})
}

func (EventObserver) TurnFinished(ctx context.Context, r session.TurnReport) {
	fields := statsFields(r.Stats)
	fields["turn_id"] = r.TurnID
	fields["greeting"] = r.Greeting
	fields["evicted"] = r.Evicted
	fields["evicted_tokens"] = r.EvictedTokens
	fields["duration_ms"] = r.Duration.Milliseconds()

	switch r.Outcome {
	case session.OutcomeCommitted:
		fields["features_version"] = featuresVersion
		fields["user"] = metrics.CountFeatures(r.UserText).Fields()
		fields["prompt_tokens"] = r.Reply.Usage.PromptTokens
		fields["completion_tokens"] = r.Reply.Usage.CompletionTokens
		fields["finish_reason"] = r.Reply.FinishReason
		Emit("turn_committed", fields)
	case session.OutcomeRolledBack:
		fields["restored"] = r.Restored
		fields["error"] = errString(r.Err)
		Emit("turn_rolled_back", fields)
	default:
		fields["error"] = errString(r.Err)
		Emit("turn_rejected", fields)
	}
}

func (EventObserver) HistoryCleared(st session.Stats) {
	Emit("history_cleared", statsFields(st))
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
