package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete quorum configuration
type Config struct {
	Backends  []BackendConfig `mapstructure:"backends" yaml:"backends"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch" yaml:"dispatch"`
	Vote      VoteConfig      `mapstructure:"vote" yaml:"vote"`
	Debate    DebateConfig    `mapstructure:"debate" yaml:"debate"`
	Committee CommitteeConfig `mapstructure:"committee" yaml:"committee"`
	Synthesis SynthesisConfig `mapstructure:"synthesis" yaml:"synthesis"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
}

// BackendConfig declares one language-model backend.
type BackendConfig struct {
	// ID is the stable identifier used in votes, debate roles and filters
	ID string `mapstructure:"id" yaml:"id"`
	// Name is the display name used in prompts ("{name}'s advice: ...")
	Name string `mapstructure:"name" yaml:"name"`
	// Provider selects the adapter: "openai", "groq", "ollama" or "anthropic"
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model is the provider model name (empty uses the provider default)
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// Endpoint overrides the provider base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env,omitempty"`
	// Temperature is the sampling temperature (0 uses the provider default)
	Temperature float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	// MaxTokens caps the response length (0 uses the provider default)
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	// SystemPrompt overrides the system prompt sent with every call
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`
	// Standby backends are not dispatched to; they only serve as arbiter or debater
	Standby bool `mapstructure:"standby" yaml:"standby,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (b BackendConfig) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}

// DispatchConfig controls the parallel fan-out to backends
type DispatchConfig struct {
	// MaxParallel caps concurrent backend calls (0 = one per backend)
	MaxParallel int `mapstructure:"max_parallel" yaml:"max_parallel"`
	// CallTimeoutSeconds bounds each backend call (0 = no per-call timeout)
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds" yaml:"call_timeout_seconds"`
	// SystemPrompt is the system prompt for dispatch rounds
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt"`
}

// CallTimeout returns the per-call timeout as a Duration.
func (c *DispatchConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// VoteConfig controls the voting strategy
type VoteConfig struct {
	// Mode is "tally" (count votes, arbiter only when ambiguous) or
	// "arbiter" (always let the arbiter count)
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Arbiter is the backend ID that counts ambiguous votes and states the winner
	Arbiter string `mapstructure:"arbiter" yaml:"arbiter"`
}

// DebateConfig controls the two-oracle debate
type DebateConfig struct {
	// A is the backend ID of the opening oracle
	A string `mapstructure:"a" yaml:"a"`
	// B is the backend ID of the responding oracle
	B string `mapstructure:"b" yaml:"b"`
	// Rounds is the number of A/B exchanges (each round is two turns)
	Rounds int `mapstructure:"rounds" yaml:"rounds"`
	// OnTurnFailure is "placeholder" or "terminate"
	OnTurnFailure string `mapstructure:"on_turn_failure" yaml:"on_turn_failure"`
}

// CommitteeConfig controls the committee strategy
type CommitteeConfig struct {
	// Arbiter is the backend ID that rules over the committee's advice
	Arbiter string `mapstructure:"arbiter" yaml:"arbiter"`
}

// SynthesisConfig controls the final synthesis call
type SynthesisConfig struct {
	// Arbiter is the backend ID that writes the final answer
	Arbiter string `mapstructure:"arbiter" yaml:"arbiter"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is active (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level sets the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory (empty = {config dir}/logs)
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// ResolveDir returns the log directory, defaulting to {config dir}/logs.
func (l *LoggingConfig) ResolveDir() string {
	if l.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(l.Dir)
}

// OutputConfig controls how results are rendered
type OutputConfig struct {
	// Format is "html", "terminal", "text" or "json"
	Format string `mapstructure:"format" yaml:"format"`
	// OpenBrowser opens the HTML page after writing it
	OpenBrowser bool `mapstructure:"open_browser" yaml:"open_browser"`
	// Dir is where HTML pages are written (empty = system temp dir)
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// DefaultSystemPrompt is sent when neither the caller nor the backend
// declares a system prompt.
const DefaultSystemPrompt = "You are a coder and problem solver expert"

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Backends: DefaultBackends(),
		Dispatch: DispatchConfig{
			MaxParallel:        0,
			CallTimeoutSeconds: 120,
			SystemPrompt:       DefaultSystemPrompt,
		},
		Vote: VoteConfig{
			Mode:    "tally",
			Arbiter: "openai",
		},
		Debate: DebateConfig{
			A:             "anthropic",
			B:             "openai",
			Rounds:        3,
			OnTurnFailure: "placeholder",
		},
		Committee: CommitteeConfig{
			Arbiter: "openai",
		},
		Synthesis: SynthesisConfig{
			Arbiter: "openai",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Output: OutputConfig{
			Format:      "html",
			OpenBrowser: true,
		},
	}
}

// DefaultBackends returns the stock registry: nine local ollama advisors
// followed by groq, anthropic and openai.
func DefaultBackends() []BackendConfig {
	local := []struct{ id, model, name string }{
		{"wizardlm2", "wizardlm2:7b", "Wizardlm2"},
		{"llama3", "llama3", "Llama3 8B"},
		{"mistral", "mistral", "Mistral 7B"},
		{"qwen", "qwen:14b", "Qwen 14B"},
		{"phi3", "phi3", "Phi3"},
		{"openchat", "openchat", "OpenChat"},
		{"gemma", "gemma:7b", "Gemma 7B"},
		{"magicoder", "magicoder", "Magicoder"},
		{"codeqwen", "codeqwen", "CodeQwen"},
	}

	backends := make([]BackendConfig, 0, len(local)+3)
	for _, m := range local {
		backends = append(backends, BackendConfig{
			ID:       m.id,
			Name:     m.name,
			Provider: "ollama",
			Model:    m.model,
		})
	}
	return append(backends,
		BackendConfig{
			ID:        "groq",
			Name:      "Llama3 70B",
			Provider:  "groq",
			Model:     "llama3-70b-8192",
			APIKeyEnv: "GROQ_API_KEY",
			MaxTokens: 1024,
		},
		BackendConfig{
			ID:        "anthropic",
			Name:      "Claude3",
			Provider:  "anthropic",
			Model:     "claude-3-sonnet-20240229",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 700,
		},
		BackendConfig{
			ID:        "openai",
			Name:      "OpenAI",
			Provider:  "openai",
			Model:     "gpt-4-turbo",
			APIKeyEnv: "OPENAI_API_KEY",
		},
	)
}

// backendDefaults converts the default registry into the generic form
// viper stores, so that mapstructure decodes it like a parsed YAML list.
func backendDefaults(backends []BackendConfig) []map[string]any {
	out := make([]map[string]any, 0, len(backends))
	for _, b := range backends {
		out = append(out, map[string]any{
			"id":            b.ID,
			"name":          b.Name,
			"provider":      b.Provider,
			"model":         b.Model,
			"endpoint":      b.Endpoint,
			"api_key_env":   b.APIKeyEnv,
			"temperature":   b.Temperature,
			"max_tokens":    b.MaxTokens,
			"system_prompt": b.SystemPrompt,
			"standby":       b.Standby,
		})
	}
	return out
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("backends", backendDefaults(defaults.Backends))

	// Dispatch defaults
	viper.SetDefault("dispatch.max_parallel", defaults.Dispatch.MaxParallel)
	viper.SetDefault("dispatch.call_timeout_seconds", defaults.Dispatch.CallTimeoutSeconds)
	viper.SetDefault("dispatch.system_prompt", defaults.Dispatch.SystemPrompt)

	// Vote defaults
	viper.SetDefault("vote.mode", defaults.Vote.Mode)
	viper.SetDefault("vote.arbiter", defaults.Vote.Arbiter)

	// Debate defaults
	viper.SetDefault("debate.a", defaults.Debate.A)
	viper.SetDefault("debate.b", defaults.Debate.B)
	viper.SetDefault("debate.rounds", defaults.Debate.Rounds)
	viper.SetDefault("debate.on_turn_failure", defaults.Debate.OnTurnFailure)

	viper.SetDefault("committee.arbiter", defaults.Committee.Arbiter)
	viper.SetDefault("synthesis.arbiter", defaults.Synthesis.Arbiter)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)
	viper.SetDefault("output.open_browser", defaults.Output.OpenBrowser)
	viper.SetDefault("output.dir", defaults.Output.Dir)
}

// Load reads the configuration from viper into a Config struct
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// Backend returns the backend declared with id.
func (c *Config) Backend(id string) (BackendConfig, bool) {
	for _, b := range c.Backends {
		if b.ID == id {
			return b, true
		}
	}
	return BackendConfig{}, false
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum")
	}
	// Fall back to ~/.config/quorum
	home, err := os.UserHomeDir()
	if err != nil {
		return ".quorum"
	}
	return filepath.Join(home, ".config", "quorum")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// ValidVoteModes returns the list of valid vote modes
func ValidVoteModes() []string {
	return []string{"tally", "arbiter"}
}

// ValidTurnFailurePolicies returns the list of valid debate turn failure policies
func ValidTurnFailurePolicies() []string {
	return []string{"placeholder", "terminate"}
}

// ValidProviders returns the list of supported backend providers
func ValidProviders() []string {
	return []string{"openai", "groq", "ollama", "anthropic"}
}

// ValidOutputFormats returns the list of valid output formats
func ValidOutputFormats() []string {
	return []string{"html", "terminal", "text", "json"}
}
