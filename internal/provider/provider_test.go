package provider_test

import (
	"testing"

	"github.com/petasbytes/chatmem/internal/config"
	"github.com/petasbytes/chatmem/internal/provider"
)

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Azure = config.AzureConfig{Endpoint: "https://x", Deployment: "d", APIKey: "k"}

	c, err := provider.New(cfg, nil)
	if err != nil {
		t.Fatalf("azure: %v", err)
	}
	if _, ok := c.(*provider.AzureClient); !ok {
		t.Fatalf("azure: got %T", c)
	}

	cfg.Provider = config.ProviderAnthropic
	cfg.Anthropic.APIKey = "k"
	c, err = provider.New(cfg, nil)
	if err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if _, ok := c.(*provider.AnthropicClient); !ok {
		t.Fatalf("anthropic: got %T", c)
	}

	cfg.Provider = "openai"
	if _, err := provider.New(cfg, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
