// Package provider holds the session.ModelClient backends: Azure OpenAI over
// REST, Anthropic through its SDK, and a scripted mock.
package provider

import (
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/chatmem/internal/config"
	"github.com/petasbytes/chatmem/session"
)

// New builds the backend named by cfg.Provider. cfg should already be
// validated. A nil hc selects http.DefaultClient.
func New(cfg config.Config, hc *http.Client) (session.ModelClient, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	switch cfg.Provider {
	case config.ProviderAzure:
		return NewAzureClient(cfg.Azure.Endpoint, cfg.Azure.APIKey, cfg.Azure.Deployment, cfg.Azure.APIVersion,
			WithHTTPClient(hc)), nil
	case config.ProviderAnthropic:
		opts := []option.RequestOption{option.WithHTTPClient(hc)}
		if cfg.Anthropic.APIKey != "" {
			opts = append(opts, option.WithAPIKey(cfg.Anthropic.APIKey))
		}
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return NewAnthropicClient(cfg.Anthropic.Model, opts...), nil
	}
	return nil, fmt.Errorf("provider: unknown provider %q", cfg.Provider)
}
