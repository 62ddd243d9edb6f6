// chat is an interactive terminal chat that keeps its conversation inside a
// fixed token budget, evicting the oldest messages as it fills.
//
// Configuration comes from defaults, an optional YAML file (--config or
// CHATMEM_CONFIG), the environment and finally the command-line flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/petasbytes/chatmem/internal/config"
	"github.com/petasbytes/chatmem/internal/metrics"
	"github.com/petasbytes/chatmem/internal/persona"
	"github.com/petasbytes/chatmem/internal/provider"
	"github.com/petasbytes/chatmem/internal/telemetry"
	"github.com/petasbytes/chatmem/session"
	"github.com/petasbytes/chatmem/windowing"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath   string
	listPersonas bool
	noGreeting   bool

	provider    string
	persona     string
	encoding    string
	model       string
	deployment  string
	maxContext  int
	reserve     int
	temperature float64
	timeout     time.Duration
	metricsAddr string
	logLevel    string
	logFormat   string
}

func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("chat", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configPath, "config", os.Getenv("CHATMEM_CONFIG"), "YAML configuration file")
	fs.BoolVar(&f.listPersonas, "list-personas", false, "print persona keys and exit")
	fs.BoolVar(&f.noGreeting, "no-greeting", false, "do not ask the model to open the conversation")

	fs.StringVar(&f.provider, "provider", "", "model backend: azure or anthropic")
	fs.StringVar(&f.persona, "persona", "", "persona key (see --list-personas)")
	fs.StringVar(&f.encoding, "encoding", "", `token encoding, or "heuristic" to skip the exact encoder`)
	fs.StringVar(&f.model, "model", "", "Anthropic model name")
	fs.StringVar(&f.deployment, "deployment", "", "Azure OpenAI deployment name")
	fs.IntVar(&f.maxContext, "max-context-tokens", 0, "total context window in tokens")
	fs.IntVar(&f.reserve, "reserved-response-tokens", 0, "tokens kept free for the reply")
	fs.Float64Var(&f.temperature, "temperature", 0, "sampling temperature")
	fs.DurationVar(&f.timeout, "request-timeout", 0, "per-request timeout (0 disables)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", `serve Prometheus metrics on this address, e.g. ":9090"`)
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "text or json")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) {
	set := fs.Changed
	if set("provider") {
		cfg.Provider = config.Provider(f.provider)
	}
	if set("persona") {
		cfg.Persona = f.persona
	}
	if set("encoding") {
		cfg.Encoding = f.encoding
	}
	if set("model") {
		cfg.Anthropic.Model = f.model
	}
	if set("deployment") {
		cfg.Azure.Deployment = f.deployment
	}
	if set("max-context-tokens") {
		cfg.Budget.MaxContextTokens = f.maxContext
	}
	if set("reserved-response-tokens") {
		cfg.Budget.ReservedResponseTokens = f.reserve
	}
	if set("temperature") {
		t := f.temperature
		cfg.Generation.Temperature = &t
	}
	if set("request-timeout") {
		cfg.RequestTimeout = f.timeout
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if set("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if set("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if f.noGreeting {
		cfg.Greeting = false
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, fs)
			return nil
		}
		return err
	}
	if help, _ := fs.GetBool("help"); help {
		printHelp(stdout, fs)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(fs, &f, &cfg)

	catalog := persona.NewCatalog(cfg.Personas)
	if f.listPersonas {
		fmt.Fprintln(stdout, strings.Join(catalog.Keys(), "\n"))
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p, err := catalog.Lookup(cfg.Persona)
	if err != nil {
		return err
	}

	logger, err := telemetry.NewLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	client, err := provider.New(cfg, nil)
	if err != nil {
		return err
	}

	observers := []session.Observer{telemetry.EventObserver{}}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return err
		}
		observers = append(observers, rec)
		stop := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer stop()
	}

	sess, err := session.New(session.Config{
		SystemPrompt: p.Prompt,
		Budget:       cfg.Budget,
		Counter:      windowing.NewCounter(cfg.Encoding, windowing.WithCounterLogger(logger)),
		Client:       client,
		Params:       cfg.GenerationParams(),
		TurnTimeout:  cfg.RequestTimeout,
		Observer:     session.Observers(observers...),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		select {
		case <-sigch:
			fmt.Fprintln(stdout, "\nExiting...")
			cancel()
		case <-ctx.Done():
		}
	}()

	r := &repl{sess: sess, name: p.Name, out: stdout, greet: cfg.Greeting}
	return r.run(ctx, stdin)
}

// serveMetrics exposes reg on addr/metrics until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `chat: terminal chat with a token-budgeted memory.

Old messages are dropped, oldest first, whenever the conversation would no
longer fit in --max-context-tokens minus --reserved-response-tokens. The
persona's system prompt is always kept.

Commands while chatting: quit, clear, stats, help.

Usage:
  chat [flags]

Flags:
%s`, fs.FlagUsages())
}
