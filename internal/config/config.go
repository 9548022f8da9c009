// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.leadscout/config.yaml)
//  3. Default values
//
// Security: sensitive values (provider API keys) are never logged; MarshalJSON
// masks them explicitly. Validation is fail-fast with sentinel errors so callers
// can check error classes with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTurns indicates the tool-call turn limit is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidEndpoint indicates a provider endpoint URL is invalid.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// SearchConfig holds the web-search provider (Tavily) configuration.
type SearchConfig struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	APIKey   string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
}

// MarshalJSON masks the API key.
func (s SearchConfig) MarshalJSON() ([]byte, error) {
	type alias SearchConfig
	a := alias(s)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal search config: %w", err)
	}
	return data, nil
}

// EnrichConfig holds the profile-enrichment provider (Scrapin) configuration.
type EnrichConfig struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	APIKey   string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
}

// MarshalJSON masks the API key.
func (e EnrichConfig) MarshalJSON() ([]byte, error) {
	type alias EnrichConfig
	a := alias(e)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal enrich config: %w", err)
	}
	return data, nil
}

// TracingConfig holds OTLP trace export configuration.
// Traces are exported to a local collector agent over OTLP HTTP.
type TracingConfig struct {
	AgentHost   string `mapstructure:"agent_host" json:"agent_host"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "gemini" (default) or "openai"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Agent loop configuration
	MaxTurns          int `mapstructure:"max_turns" json:"max_turns"`                     // tool-call round-trip cap per request
	RunTimeoutSeconds int `mapstructure:"run_timeout_seconds" json:"run_timeout_seconds"` // whole-run deadline

	// Outbound HTTP configuration (shared by all tools)
	HTTPTimeoutSeconds int `mapstructure:"http_timeout_seconds" json:"http_timeout_seconds"`

	// Tool provider configuration
	Search SearchConfig `mapstructure:"search" json:"search"`
	Enrich EnrichConfig `mapstructure:"enrich" json:"enrich"`

	// Observability configuration
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`

	// Server configuration (serve mode only)
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".leadscout")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail-fast validation
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)

	// Agent loop defaults
	viper.SetDefault("max_turns", 5)
	viper.SetDefault("run_timeout_seconds", 120)

	// Outbound HTTP defaults
	viper.SetDefault("http_timeout_seconds", 30)

	// Tool provider defaults
	viper.SetDefault("search.endpoint", "https://api.tavily.com/search")
	viper.SetDefault("enrich.endpoint", "https://api.scrapin.io/enrichment/profile")

	// CORS defaults (Vite dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)

	// Tracing defaults
	viper.SetDefault("tracing.agent_host", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "leadscout")
}

// bindEnvVariables binds sensitive environment variables explicitly.
// Model provider keys (GEMINI_API_KEY / OPENAI_API_KEY) are read directly by
// the Genkit plugins, not via Viper; ValidateServe checks their presence.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Tool provider secrets
	mustBind("search.api_key", "TAVILY_API_KEY")
	mustBind("enrich.api_key", "SCRAPIN_API_KEY")

	// AI provider and model overrides
	mustBind("provider", "LEADSCOUT_PROVIDER")
	mustBind("model_name", "LEADSCOUT_MODEL_NAME")

	// Server overrides
	mustBind("cors_origins", "LEADSCOUT_CORS_ORIGINS")
	mustBind("trust_proxy", "LEADSCOUT_TRUST_PROXY")

	// Tracing
	mustBind("tracing.agent_host", "LEADSCOUT_TRACE_AGENT_HOST")
}

// Validate performs range checks on all configuration values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (supported: gemini, openai)", ErrInvalidProvider, c.Provider)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTurns < 1 || c.MaxTurns > 50 {
		return fmt.Errorf("%w: %d (must be in [1, 50])", ErrInvalidMaxTurns, c.MaxTurns)
	}

	if c.RunTimeoutSeconds < 1 {
		return fmt.Errorf("%w: run_timeout_seconds=%d", ErrInvalidTimeout, c.RunTimeoutSeconds)
	}
	if c.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("%w: http_timeout_seconds=%d", ErrInvalidTimeout, c.HTTPTimeoutSeconds)
	}

	if !strings.HasPrefix(c.Search.Endpoint, "https://") && !strings.HasPrefix(c.Search.Endpoint, "http://") {
		return fmt.Errorf("%w: search endpoint %q", ErrInvalidEndpoint, c.Search.Endpoint)
	}
	if !strings.HasPrefix(c.Enrich.Endpoint, "https://") && !strings.HasPrefix(c.Enrich.Endpoint, "http://") {
		return fmt.Errorf("%w: enrich endpoint %q", ErrInvalidEndpoint, c.Enrich.Endpoint)
	}

	return nil
}

// ValidateServe performs the additional checks required to run the HTTP server:
// all provider secrets must be present.
func (c *Config) ValidateServe() error {
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY not set", ErrMissingAPIKey)
		}
	default:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY not set", ErrMissingAPIKey)
		}
	}

	if c.Search.APIKey == "" {
		return fmt.Errorf("%w: TAVILY_API_KEY not set", ErrMissingAPIKey)
	}
	if c.Enrich.APIKey == "" {
		return fmt.Errorf("%w: SCRAPIN_API_KEY not set", ErrMissingAPIKey)
	}

	return nil
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer secrets show the first
// and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// Nested Search/Enrich API keys are handled by their own MarshalJSON.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	data, err := json.Marshal(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	if c.Provider == ProviderOpenAI {
		return ProviderOpenAI + "/" + c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
