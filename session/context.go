package session

import "context"

type turnIDKey struct{}

// WithTurnID attaches a turn ID to ctx. A nil ctx is treated as
// context.Background(). Sessions set it on every turn so observers and
// clients can correlate their output.
func WithTurnID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFromContext returns the turn ID carried by ctx, or "", false when
// none (or an empty one) is set.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(turnIDKey{}).(string)
	return id, ok && id != ""
}
