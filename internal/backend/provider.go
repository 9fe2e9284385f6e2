package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig holds everything an adapter needs for one backend.
type ProviderConfig struct {
	Provider     string
	Endpoint     string
	Model        string
	APIKey       string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	// KeyRequired rejects calls without an API key before any request is
	// made. Local ollama servers accept any key.
	KeyRequired bool
}

// DefaultProviderConfig returns the defaults for a provider.
func DefaultProviderConfig(provider string) ProviderConfig {
	cfg := ProviderConfig{
		Provider:     provider,
		Temperature:  0.3,
		SystemPrompt: config.DefaultSystemPrompt,
		KeyRequired:  true,
	}
	switch provider {
	case ProviderOpenAI:
		cfg.Endpoint = "https://api.openai.com/v1"
		cfg.Model = "gpt-4-turbo"
	case ProviderGroq:
		cfg.Endpoint = "https://api.groq.com/openai/v1"
		cfg.Model = "llama3-70b-8192"
		cfg.MaxTokens = 1024
	case ProviderOllama:
		cfg.Endpoint = "http://localhost:11434/v1"
		cfg.Model = "llama3"
		cfg.KeyRequired = false
	case ProviderAnthropic:
		cfg.Endpoint = "https://api.anthropic.com"
		cfg.Model = "claude-3-sonnet-20240229"
		cfg.MaxTokens = 700
	}
	return cfg
}

// KeyLookup resolves an environment variable name to an API key.
type KeyLookup func(envVar string) string

type options struct {
	client *http.Client
}

// Option configures adapters built by New and NewRegistryFromConfig.
type Option func(*options)

// WithHTTPClient sets the HTTP client used by network adapters.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

func buildOptions(opts []Option) options {
	o := options{client: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the adapter for one declared backend. Missing API keys are
// not an error here; the adapter reports BackendAuthError when invoked.
func New(bc config.BackendConfig, lookup KeyLookup, opts ...Option) (Backend, error) {
	if strings.TrimSpace(bc.ID) == "" {
		return nil, errors.NewValidationError("backend id cannot be empty").WithField("id")
	}

	cfg := DefaultProviderConfig(bc.Provider)
	if bc.Endpoint != "" {
		cfg.Endpoint = strings.TrimRight(bc.Endpoint, "/")
	}
	if bc.Model != "" {
		cfg.Model = bc.Model
	}
	if bc.Temperature != 0 {
		cfg.Temperature = bc.Temperature
	}
	if bc.MaxTokens != 0 {
		cfg.MaxTokens = bc.MaxTokens
	}
	if bc.SystemPrompt != "" {
		cfg.SystemPrompt = bc.SystemPrompt
	}
	if bc.APIKeyEnv != "" && lookup != nil {
		cfg.APIKey = lookup(bc.APIKeyEnv)
	}

	o := buildOptions(opts)
	switch bc.Provider {
	case ProviderOpenAI, ProviderGroq, ProviderOllama:
		if cfg.APIKey == "" && bc.Provider == ProviderOllama {
			// The ollama OpenAI-compatible API wants a non-empty key.
			cfg.APIKey = "ollama"
		}
		return newOpenAIBackend(bc.ID, bc.DisplayName(), cfg, o.client), nil
	case ProviderAnthropic:
		return newAnthropicBackend(bc.ID, bc.DisplayName(), cfg, o.client), nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown provider %q", bc.Provider)).
			WithField("provider").WithValue(bc.Provider)
	}
}
