package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Provider:           ProviderGemini,
		ModelName:          "gemini-2.5-flash",
		Temperature:        0.7,
		MaxTurns:           5,
		RunTimeoutSeconds:  120,
		HTTPTimeoutSeconds: 30,
		Search: SearchConfig{
			Endpoint: "https://api.tavily.com/search",
			APIKey:   "tvly-test-key-12345",
		},
		Enrich: EnrichConfig{
			Endpoint: "https://api.scrapin.io/enrichment/profile",
			APIKey:   "sk_test_key_12345",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "anthropic" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "  " },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max turns",
			mutate:  func(c *Config) { c.MaxTurns = 0 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "max turns too high",
			mutate:  func(c *Config) { c.MaxTurns = 100 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "zero run timeout",
			mutate:  func(c *Config) { c.RunTimeoutSeconds = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero http timeout",
			mutate:  func(c *Config) { c.HTTPTimeoutSeconds = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "bad search endpoint",
			mutate:  func(c *Config) { c.Search.Endpoint = "ftp://api.tavily.com" },
			wantErr: ErrInvalidEndpoint,
		},
		{
			name:    "bad enrich endpoint",
			mutate:  func(c *Config) { c.Enrich.Endpoint = "" },
			wantErr: ErrInvalidEndpoint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServe_MissingToolKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "fake-model-key")

	cfg := validConfig()
	cfg.Search.APIKey = ""
	if err := cfg.ValidateServe(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("ValidateServe() = %v, want ErrMissingAPIKey", err)
	}

	cfg = validConfig()
	cfg.Enrich.APIKey = ""
	if err := cfg.ValidateServe(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("ValidateServe() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateServe_MissingModelKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validConfig()
	if err := cfg.ValidateServe(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("ValidateServe() = %v, want ErrMissingAPIKey", err)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", ""},
		{"short fully masked", "abc123", maskedValue},
		{"exactly 8 fully masked", "12345678", maskedValue},
		{"long shows edges", "tvly-secret-key-xyz", "tv<" + maskedValue + ">yz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestMarshalJSON_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	s := string(data)
	if strings.Contains(s, cfg.Search.APIKey) {
		t.Errorf("marshaled config leaks search API key: %s", s)
	}
	if strings.Contains(s, cfg.Enrich.APIKey) {
		t.Errorf("marshaled config leaks enrich API key: %s", s)
	}
	if !strings.Contains(s, "gemini-2.5-flash") {
		t.Errorf("marshaled config missing non-sensitive field: %s", s)
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	s := cfg.String()
	if strings.Contains(s, cfg.Search.APIKey) || strings.Contains(s, cfg.Enrich.APIKey) {
		t.Errorf("String() leaks secrets: %s", s)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{ProviderGemini, "googleai/gemini-2.0-flash", "googleai/gemini-2.0-flash"},
	}

	for _, tt := range tests {
		cfg := &Config{Provider: tt.provider, ModelName: tt.model}
		if got := cfg.FullModelName(); got != tt.want {
			t.Errorf("FullModelName(%s, %s) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}
