package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/petasbytes/chatmem/internal/config"
	"github.com/petasbytes/chatmem/memory"
	"github.com/petasbytes/chatmem/session"
)

// ErrInvalidResponse is returned when a 2xx body is not a chat completion.
var ErrInvalidResponse = errors.New("provider: invalid response body")

// maxErrorBody caps how much of a failed response is kept in an APIError.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response from a chat completions endpoint.
type APIError struct {
	StatusCode int
	// Code and Message come from the body's error object when present.
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("azure openai: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("azure openai: HTTP %d: %s", e.StatusCode, e.Body)
}

// AzureClient calls an Azure OpenAI chat completions deployment.
type AzureClient struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	httpClient *http.Client
}

// AzureOption configures an AzureClient.
type AzureOption func(*AzureClient)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) AzureOption {
	return func(a *AzureClient) { a.httpClient = c }
}

// NewAzureClient returns a client for deployment at endpoint. An empty
// apiVersion selects config.DefaultAzureAPIVersion.
func NewAzureClient(endpoint, apiKey, deployment, apiVersion string, opts ...AzureOption) *AzureClient {
	if apiVersion == "" {
		apiVersion = config.DefaultAzureAPIVersion
	}
	c := &AzureClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: apiVersion,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL is the chat completions URL requests are posted to.
func (c *AzureClient) URL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))
}

type azureMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Send implements session.ModelClient.
func (c *AzureClient) Send(ctx context.Context, seq []memory.Entry, params session.GenerationParams) (session.Reply, error) {
	body, err := azureRequestBody(seq, params)
	if err != nil {
		return session.Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(body))
	if err != nil {
		return session.Reply{}, fmt.Errorf("azure openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session.Reply{}, fmt.Errorf("azure openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.Reply{}, fmt.Errorf("azure openai: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return session.Reply{}, newAPIError(resp.StatusCode, raw)
	}
	return parseAzureReply(raw)
}

// azureRequestBody encodes the message list and sets only the optional
// parameters that were given.
func azureRequestBody(seq []memory.Entry, p session.GenerationParams) ([]byte, error) {
	msgs := make([]azureMessage, len(seq))
	for i, e := range seq {
		msgs[i] = azureMessage{Role: string(e.Role), Content: e.Content}
	}
	body, err := json.Marshal(struct {
		Messages []azureMessage `json:"messages"`
	}{msgs})
	if err != nil {
		return nil, fmt.Errorf("azure openai: encode request: %w", err)
	}

	set := func(path string, v any) {
		if err != nil {
			return
		}
		body, err = sjson.SetBytes(body, path, v)
	}
	if p.MaxTokens > 0 {
		set("max_tokens", p.MaxTokens)
	}
	if p.Temperature != nil {
		set("temperature", *p.Temperature)
	}
	if p.TopP != nil {
		set("top_p", *p.TopP)
	}
	if p.PresencePenalty != nil {
		set("presence_penalty", *p.PresencePenalty)
	}
	if p.FrequencyPenalty != nil {
		set("frequency_penalty", *p.FrequencyPenalty)
	}
	if err != nil {
		return nil, fmt.Errorf("azure openai: encode request: %w", err)
	}
	return body, nil
}

func parseAzureReply(raw []byte) (session.Reply, error) {
	if !gjson.ValidBytes(raw) {
		return session.Reply{}, fmt.Errorf("%w: not JSON", ErrInvalidResponse)
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return session.Reply{}, fmt.Errorf("%w: missing choices[0].message.content", ErrInvalidResponse)
	}
	usage := gjson.GetBytes(raw, "usage")
	return session.Reply{
		Content:      content.String(),
		FinishReason: gjson.GetBytes(raw, "choices.0.finish_reason").String(),
		Model:        gjson.GetBytes(raw, "model").String(),
		Usage: session.Usage{
			PromptTokens:     int(usage.Get("prompt_tokens").Int()),
			CompletionTokens: int(usage.Get("completion_tokens").Int()),
			TotalTokens:      int(usage.Get("total_tokens").Int()),
		},
	}, nil
}

func newAPIError(status int, raw []byte) *APIError {
	e := &APIError{StatusCode: status}
	if gjson.ValidBytes(raw) {
		e.Code = gjson.GetBytes(raw, "error.code").String()
		e.Message = gjson.GetBytes(raw, "error.message").String()
	}
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	e.Body = string(raw)
	return e
}
