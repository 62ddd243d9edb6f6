package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/petasbytes/chatmem/internal/config"
)

// clearEnv keeps host credentials and settings out of run.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHATMEM_CONFIG", "CHATMEM_PROVIDER", "CHATMEM_PERSONA", "CHATMEM_MAX_CONTEXT_TOKENS",
		"CHATMEM_RESERVED_RESPONSE_TOKENS", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_KEY",
		"AZURE_OPENAI_DEPLOYMENT", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestRun_ListPersonas(t *testing.T) {
	clearEnv(t)
	var out bytes.Buffer
	if err := run([]string{"--list-personas"}, strings.NewReader(""), &out, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "casual\ncreative\nprofessional\ntechnical\ntravel\n"
	if out.String() != want {
		t.Fatalf("want %q, got %q", want, out.String())
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--help"}, strings.NewReader(""), &out, io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "--max-context-tokens") {
		t.Fatalf("help missing flags:\n%s", out.String())
	}
}

func TestRun_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"UnexpectedArg", []string{"extra"}, "unexpected argument"},
		{"UnknownFlag", []string{"--nope"}, "unknown flag"},
		{"MissingCredentials", []string{"--no-greeting"}, "AZURE_OPENAI_ENDPOINT"},
		{"ReserveTooLarge", []string{"--provider", "anthropic", "--max-context-tokens", "100", "--reserved-response-tokens", "100"}, "reserved_response_tokens"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("ANTHROPIC_API_KEY", "")
			err := run(tc.args, strings.NewReader(""), io.Discard, io.Discard)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRun_UnknownPersona(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "k")
	err := run([]string{"--provider", "anthropic", "--persona", "pirate"}, strings.NewReader(""), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown persona") {
		t.Fatalf("want unknown persona error, got %v", err)
	}
}

func TestApplyFlags_OnlyChanged(t *testing.T) {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse([]string{"--temperature", "0", "--max-context-tokens", "8000", "--no-greeting"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.Default()
	cfg.Persona = "casual"
	applyFlags(fs, &f, &cfg)

	if cfg.Budget.MaxContextTokens != 8000 || cfg.Budget.ReservedResponseTokens != 500 {
		t.Fatalf("budget: %+v", cfg.Budget)
	}
	if cfg.Generation.Temperature == nil || *cfg.Generation.Temperature != 0 {
		t.Fatalf("explicit zero temperature not applied: %v", cfg.Generation.Temperature)
	}
	if cfg.Persona != "casual" || cfg.Greeting {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("azure credentials are unset; want ErrInvalid, got %v", err)
	}
}
