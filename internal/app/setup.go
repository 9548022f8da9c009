package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/genai"

	"github.com/leadscout/leadscout/internal/agent"
	"github.com/leadscout/leadscout/internal/config"
	"github.com/leadscout/leadscout/internal/log"
	"github.com/leadscout/leadscout/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	a := &App{Config: cfg, Logger: logger}

	// Tracing must be wired before Genkit initialization so spans from the
	// very first Generate call are exported.
	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	registry, err := provideTools(g, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	ag, err := provideAgent(g, registry, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Agent = ag

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export before Genkit initialization.
//
// Traces are exported to a local collector agent via OTLP HTTP. The agent
// handles authentication, buffering, and forwarding to the backend.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	tc := cfg.Tracing

	agentHost := tc.AgentHost
	if agentHost == "" {
		agentHost = "localhost:4318"
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if tc.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", tc.ServiceName)
	}
	if tc.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+tc.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"agent", agentHost,
		"service", tc.ServiceName,
		"environment", tc.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default) and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // gemini
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideTools builds the tool pipeline on a shared HTTP client and registers
// everything with Genkit.
func provideTools(g *genkit.Genkit, cfg *config.Config, logger log.Logger) (*tools.Registry, error) {
	client := &http.Client{
		Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
	}
	fetcher := tools.NewFetcher(client, logger)

	search, err := tools.NewSearch(fetcher, cfg.Search.Endpoint, cfg.Search.APIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("creating search tool: %w", err)
	}

	enricher, err := tools.NewEnricher(search, fetcher, cfg.Enrich.Endpoint, cfg.Enrich.APIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("creating enrich tool: %w", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterAll(g, registry, search, enricher); err != nil {
		return nil, err
	}

	logger.Info("registered tools", "count", registry.Count(), "names", registry.Names())
	return registry, nil
}

// provideAgent builds the orchestrating agent from configuration.
func provideAgent(g *genkit.Genkit, registry *tools.Registry, cfg *config.Config, logger log.Logger) (*agent.Agent, error) {
	agentCfg := agent.Config{
		ModelName:  cfg.FullModelName(),
		MaxTurns:   cfg.MaxTurns,
		RunTimeout: time.Duration(cfg.RunTimeoutSeconds) * time.Second,
	}

	// Provider-native generation config; the openai plugin takes its own
	// parameter types, so temperature rides along only for gemini.
	if cfg.Provider != config.ProviderOpenAI {
		agentCfg.GenerationConfig = &genai.GenerateContentConfig{
			Temperature: genai.Ptr(cfg.Temperature),
		}
	}

	return agent.New(g, registry, agentCfg, logger)
}
