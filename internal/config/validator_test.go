package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

// hasFieldError reports whether errs contains an error for field.
func hasFieldError(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestConfig_Validate_Backends(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "no backends",
			mutate: func(c *Config) { c.Backends = nil },
			field:  "backends",
		},
		{
			name:   "empty id",
			mutate: func(c *Config) { c.Backends[0].ID = "" },
			field:  "backends[0].id",
		},
		{
			name:   "id with spaces",
			mutate: func(c *Config) { c.Backends[0].ID = "bad id" },
			field:  "backends[0].id",
		},
		{
			name:   "duplicate id",
			mutate: func(c *Config) { c.Backends[1].ID = c.Backends[0].ID },
			field:  "backends[1].id",
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Backends[2].Provider = "cohere" },
			field:  "backends[2].provider",
		},
		{
			name:   "relative endpoint",
			mutate: func(c *Config) { c.Backends[0].Endpoint = "localhost:11434" },
			field:  "backends[0].endpoint",
		},
		{
			name:   "temperature too high",
			mutate: func(c *Config) { c.Backends[0].Temperature = 2.5 },
			field:  "backends[0].temperature",
		},
		{
			name:   "negative max tokens",
			mutate: func(c *Config) { c.Backends[0].MaxTokens = -1 },
			field:  "backends[0].max_tokens",
		},
		{
			name: "all standby",
			mutate: func(c *Config) {
				for i := range c.Backends {
					c.Backends[i].Standby = true
				}
			},
			field: "backends",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestConfig_Validate_Sections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		field    string
		hasError bool
	}{
		{"negative max_parallel", func(c *Config) { c.Dispatch.MaxParallel = -1 }, "dispatch.max_parallel", true},
		{"zero max_parallel is valid", func(c *Config) { c.Dispatch.MaxParallel = 0 }, "dispatch.max_parallel", false},
		{"negative timeout", func(c *Config) { c.Dispatch.CallTimeoutSeconds = -5 }, "dispatch.call_timeout_seconds", true},
		{"vote mode arbiter", func(c *Config) { c.Vote.Mode = "arbiter" }, "vote.mode", false},
		{"vote mode invalid", func(c *Config) { c.Vote.Mode = "ranked" }, "vote.mode", true},
		{"unknown vote arbiter", func(c *Config) { c.Vote.Arbiter = "ghost" }, "vote.arbiter", true},
		{"zero rounds", func(c *Config) { c.Debate.Rounds = 0 }, "debate.rounds", true},
		{"too many rounds", func(c *Config) { c.Debate.Rounds = 51 }, "debate.rounds", true},
		{"terminate policy", func(c *Config) { c.Debate.OnTurnFailure = "terminate" }, "debate.on_turn_failure", false},
		{"invalid policy", func(c *Config) { c.Debate.OnTurnFailure = "retry" }, "debate.on_turn_failure", true},
		{"empty debater", func(c *Config) { c.Debate.A = "" }, "debate.a", true},
		{"same debaters", func(c *Config) { c.Debate.B = c.Debate.A }, "debate.b", true},
		{"unknown committee arbiter", func(c *Config) { c.Committee.Arbiter = "ghost" }, "committee.arbiter", true},
		{"unknown synthesis arbiter", func(c *Config) { c.Synthesis.Arbiter = "ghost" }, "synthesis.arbiter", true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level", true},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb", true},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb", true},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups", true},
		{"json output", func(c *Config) { c.Output.Format = "json" }, "output.format", false},
		{"invalid output", func(c *Config) { c.Output.Format = "pdf" }, "output.format", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			got := hasFieldError(cfg.Validate(), tt.field)
			if got != tt.hasError {
				t.Errorf("error on %s = %v, want %v", tt.field, got, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Debate.Rounds = 0
	cfg.Vote.Mode = "bogus"
	cfg.Output.Format = "pdf"

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}
