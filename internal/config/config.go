// Package config loads chat configuration.
//
// Sources, lowest precedence first:
//   - built-in defaults (Default)
//   - a YAML file named by --config or CHATMEM_CONFIG
//   - environment variables (CHATMEM_*, AZURE_OPENAI_*, ANTHROPIC_*)
//   - command-line flags, applied by the caller
//
// API keys are read from the environment only and never from the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petasbytes/chatmem/session"
	"github.com/petasbytes/chatmem/windowing"
)

// Provider names a ModelClient backend.
type Provider string

const (
	ProviderAzure     Provider = "azure"
	ProviderAnthropic Provider = "anthropic"
)

const (
	DefaultMaxContextTokens       = 4000
	DefaultReservedResponseTokens = 500
	DefaultTemperature            = 0.7
	DefaultPersona                = "travel"
	DefaultEncoding               = "cl100k_base"
	DefaultAzureAPIVersion        = "2025-01-01-preview"
	DefaultRequestTimeout         = 60 * time.Second
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full configuration for a chat process.
type Config struct {
	Provider Provider `yaml:"provider"`
	Persona  string   `yaml:"persona"`
	// Encoding selects the exact token encoder; "heuristic" skips it.
	Encoding   string                   `yaml:"encoding"`
	Budget     windowing.Budget         `yaml:"budget"`
	Generation session.GenerationParams `yaml:"generation"`
	// RequestTimeout bounds each model call; 0 disables the bound.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Greeting asks the model to open the conversation.
	Greeting bool `yaml:"greeting"`

	Azure     AzureConfig     `yaml:"azure"`
	Anthropic AnthropicConfig `yaml:"anthropic"`

	// Personas adds to or overrides the built-in persona prompts.
	Personas map[string]string `yaml:"personas,omitempty"`

	Log LogConfig `yaml:"log"`
	// MetricsAddr serves Prometheus metrics when non-empty, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// AzureConfig addresses an Azure OpenAI deployment.
type AzureConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
	APIKey     string `yaml:"-"`
}

// AnthropicConfig selects an Anthropic model.
type AnthropicConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"-"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	temp := DefaultTemperature
	return Config{
		Provider: ProviderAzure,
		Persona:  DefaultPersona,
		Encoding: DefaultEncoding,
		Budget: windowing.Budget{
			MaxContextTokens:       DefaultMaxContextTokens,
			ReservedResponseTokens: DefaultReservedResponseTokens,
		},
		Generation:     session.GenerationParams{Temperature: &temp},
		RequestTimeout: DefaultRequestTimeout,
		Greeting:       true,
		Azure:          AzureConfig{APIVersion: DefaultAzureAPIVersion},
		Log:            LogConfig{Level: "warn", Format: "text"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", name, v, err)
		}
		*dst = n
		return nil
	}

	var provider string
	str("CHATMEM_PROVIDER", &provider)
	if provider != "" {
		cfg.Provider = Provider(provider)
	}
	str("CHATMEM_PERSONA", &cfg.Persona)
	str("CHATMEM_ENCODING", &cfg.Encoding)
	str("CHATMEM_LOG_LEVEL", &cfg.Log.Level)
	str("CHATMEM_LOG_FORMAT", &cfg.Log.Format)
	str("CHATMEM_METRICS_ADDR", &cfg.MetricsAddr)
	if err := num("CHATMEM_MAX_CONTEXT_TOKENS", &cfg.Budget.MaxContextTokens); err != nil {
		return err
	}
	if err := num("CHATMEM_RESERVED_RESPONSE_TOKENS", &cfg.Budget.ReservedResponseTokens); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("CHATMEM_TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: invalid CHATMEM_TEMPERATURE %q: %w", v, err)
		}
		cfg.Generation.Temperature = &f
	}
	if v, ok := os.LookupEnv("CHATMEM_REQUEST_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid CHATMEM_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}

	str("AZURE_OPENAI_ENDPOINT", &cfg.Azure.Endpoint)
	str("AZURE_OPENAI_DEPLOYMENT", &cfg.Azure.Deployment)
	str("AZURE_OPENAI_API_VERSION", &cfg.Azure.APIVersion)
	str("AZURE_OPENAI_API_KEY", &cfg.Azure.APIKey)

	str("ANTHROPIC_MODEL", &cfg.Anthropic.Model)
	str("ANTHROPIC_BASE_URL", &cfg.Anthropic.BaseURL)
	str("ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey)
	return nil
}

// Validate checks budget shape, generation ranges and provider credentials.
func (c Config) Validate() error {
	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Budget.ReservedResponseTokens >= c.Budget.MaxContextTokens {
		return fmt.Errorf("%w: reserved_response_tokens (%d) must be below max_context_tokens (%d)",
			ErrInvalid, c.Budget.ReservedResponseTokens, c.Budget.MaxContextTokens)
	}
	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: temperature must be in [0, 2], got %g", ErrInvalid, *t)
	}
	if p := c.Generation.TopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("%w: top_p must be in [0, 1], got %g", ErrInvalid, *p)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must be >= 0", ErrInvalid)
	}

	switch c.Provider {
	case ProviderAzure:
		var missing []string
		if c.Azure.Endpoint == "" {
			missing = append(missing, "AZURE_OPENAI_ENDPOINT")
		}
		if c.Azure.APIKey == "" {
			missing = append(missing, "AZURE_OPENAI_API_KEY")
		}
		if c.Azure.Deployment == "" {
			missing = append(missing, "AZURE_OPENAI_DEPLOYMENT")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: azure provider needs %v", ErrInvalid, missing)
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: anthropic provider needs ANTHROPIC_API_KEY", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalid, c.Provider)
	}
	return nil
}

// GenerationParams returns the pass-through model parameters, with
// max_tokens defaulting to the budget's response reserve.
func (c Config) GenerationParams() session.GenerationParams {
	p := c.Generation
	if p.MaxTokens == 0 {
		p.MaxTokens = c.Budget.ReservedResponseTokens
	}
	return p
}
