package session

import (
	"context"

	"github.com/petasbytes/chatmem/memory"
)

// GenerationParams are passed to the ModelClient untouched. Nil pointers and a
// zero MaxTokens mean "backend default".
type GenerationParams struct {
	Temperature      *float64 `yaml:"temperature,omitempty"`
	TopP             *float64 `yaml:"top_p,omitempty"`
	MaxTokens        int      `yaml:"max_tokens,omitempty"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty"`
}

// Usage is the backend's token accounting for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Reply is a successful model response.
type Reply struct {
	Content      string
	Usage        Usage
	FinishReason string
	Model        string
}

// ModelClient sends a full entry sequence to a generation backend.
// Implementations own transport, authentication and any retry policy.
type ModelClient interface {
	Send(ctx context.Context, seq []memory.Entry, params GenerationParams) (Reply, error)
}
