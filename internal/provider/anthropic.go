package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/session"
)

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// defaultMaxTokens applies when the caller leaves MaxTokens unset; the
// Messages API requires one.
const defaultMaxTokens = 1024

// leadingUserText opens the message list when it would otherwise start with
// an assistant turn or be empty. The Messages API requires a user turn first.
const leadingUserText = "Hello."

// AnthropicClient sends sequences through the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient returns a client for model. The API key is read from
// ANTHROPIC_API_KEY unless opts supply one.
func NewAnthropicClient(model string, opts ...option.RequestOption) *AnthropicClient {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultModel
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: m}
}

// Send implements session.ModelClient. System entries become the request's
// system prompt. Presence and frequency penalties have no Anthropic
// counterpart and are ignored.
func (c *AnthropicClient) Send(ctx context.Context, seq []memory.Entry, p session.GenerationParams) (session.Reply, error) {
	msg, err := c.client.Messages.New(ctx, c.buildParams(seq, p))
	if err != nil {
		return session.Reply{}, fmt.Errorf("anthropic: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return session.Reply{
		Content:      text.String(),
		FinishReason: string(msg.StopReason),
		Model:        string(msg.Model),
		Usage:        session.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}

func (c *AnthropicClient) buildParams(seq []memory.Entry, p session.GenerationParams) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(seq)+1)
	for _, e := range seq {
		switch e.Role {
		case memory.RoleSystem:
			if e.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: e.Content})
			}
		case memory.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(e.Content)))
		case memory.RoleAssistant:
			if len(messages) == 0 {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(leadingUserText)))
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(e.Content)))
		}
	}
	if len(messages) == 0 {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(leadingUserText)))
	}

	maxTokens := int64(p.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  messages,
		System:    system,
	}
	if p.Temperature != nil {
		params.Temperature = param.NewOpt(*p.Temperature)
	}
	if p.TopP != nil {
		params.TopP = param.NewOpt(*p.TopP)
	}
	return params
}
