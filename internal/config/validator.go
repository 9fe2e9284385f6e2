package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "debate.rounds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// backendIDRegex validates backend identifiers. IDs appear in votes
// ("VOTE: <id>") and glob filters, so they stay short and shell-friendly.
var backendIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBackends()...)
	errors = append(errors, c.validateDispatch()...)
	errors = append(errors, c.validateVote()...)
	errors = append(errors, c.validateDebate()...)
	errors = append(errors, c.validateArbiters()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateOutput()...)

	return errors
}

// validateBackends validates the backend registry declarations
func (c *Config) validateBackends() []ValidationError {
	var errors []ValidationError

	if len(c.Backends) == 0 {
		return []ValidationError{{
			Field:   "backends",
			Value:   0,
			Message: "at least one backend must be declared",
		}}
	}

	seen := make(map[string]int, len(c.Backends))
	active := 0
	for i, b := range c.Backends {
		field := fmt.Sprintf("backends[%d]", i)

		switch {
		case b.ID == "":
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   b.ID,
				Message: "cannot be empty",
			})
		case !backendIDRegex.MatchString(b.ID):
			errors = append(errors, ValidationError{
				Field:   field + ".id",
				Value:   b.ID,
				Message: "must start with alphanumeric and contain only alphanumeric, dot, hyphen, or underscore",
			})
		default:
			if prev, dup := seen[b.ID]; dup {
				errors = append(errors, ValidationError{
					Field:   field + ".id",
					Value:   b.ID,
					Message: fmt.Sprintf("duplicates backends[%d].id", prev),
				})
			} else {
				seen[b.ID] = i
			}
		}

		if !slices.Contains(ValidProviders(), b.Provider) {
			errors = append(errors, ValidationError{
				Field:   field + ".provider",
				Value:   b.Provider,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
			})
		}

		if b.Endpoint != "" {
			if u, err := url.Parse(b.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, ValidationError{
					Field:   field + ".endpoint",
					Value:   b.Endpoint,
					Message: "must be an absolute URL",
				})
			}
		}

		if b.Temperature < 0 || b.Temperature > 2 {
			errors = append(errors, ValidationError{
				Field:   field + ".temperature",
				Value:   b.Temperature,
				Message: "must be between 0 and 2",
			})
		}

		if b.MaxTokens < 0 {
			errors = append(errors, ValidationError{
				Field:   field + ".max_tokens",
				Value:   b.MaxTokens,
				Message: "must be non-negative",
			})
		}

		if !b.Standby {
			active++
		}
	}

	if active == 0 {
		errors = append(errors, ValidationError{
			Field:   "backends",
			Value:   len(c.Backends),
			Message: "at least one backend must not be on standby",
		})
	}

	return errors
}

// validateDispatch validates the DispatchConfig
func (c *Config) validateDispatch() []ValidationError {
	var errors []ValidationError

	if c.Dispatch.MaxParallel < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_parallel",
			Value:   c.Dispatch.MaxParallel,
			Message: "must be non-negative (0 means one worker per backend)",
		})
	}

	if c.Dispatch.CallTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.call_timeout_seconds",
			Value:   c.Dispatch.CallTimeoutSeconds,
			Message: "must be non-negative (0 disables the per-call timeout)",
		})
	}

	return errors
}

// validateVote validates the VoteConfig
func (c *Config) validateVote() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidVoteModes(), c.Vote.Mode) {
		errors = append(errors, ValidationError{
			Field:   "vote.mode",
			Value:   c.Vote.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidVoteModes(), ", ")),
		})
	}

	return errors
}

// validateDebate validates the DebateConfig
func (c *Config) validateDebate() []ValidationError {
	var errors []ValidationError

	const maxRounds = 50
	if c.Debate.Rounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "debate.rounds",
			Value:   c.Debate.Rounds,
			Message: "must be at least 1",
		})
	} else if c.Debate.Rounds > maxRounds {
		errors = append(errors, ValidationError{
			Field:   "debate.rounds",
			Value:   c.Debate.Rounds,
			Message: fmt.Sprintf("exceeds maximum of %d", maxRounds),
		})
	}

	if !slices.Contains(ValidTurnFailurePolicies(), c.Debate.OnTurnFailure) {
		errors = append(errors, ValidationError{
			Field:   "debate.on_turn_failure",
			Value:   c.Debate.OnTurnFailure,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTurnFailurePolicies(), ", ")),
		})
	}

	errors = append(errors, c.validateBackendRef("debate.a", c.Debate.A)...)
	errors = append(errors, c.validateBackendRef("debate.b", c.Debate.B)...)

	if c.Debate.A != "" && c.Debate.A == c.Debate.B {
		errors = append(errors, ValidationError{
			Field:   "debate.b",
			Value:   c.Debate.B,
			Message: "must differ from debate.a",
		})
	}

	return errors
}

// validateArbiters checks that every arbiter names a declared backend
func (c *Config) validateArbiters() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateBackendRef("vote.arbiter", c.Vote.Arbiter)...)
	errors = append(errors, c.validateBackendRef("committee.arbiter", c.Committee.Arbiter)...)
	errors = append(errors, c.validateBackendRef("synthesis.arbiter", c.Synthesis.Arbiter)...)
	return errors
}

func (c *Config) validateBackendRef(field, id string) []ValidationError {
	if id == "" {
		return []ValidationError{{Field: field, Value: id, Message: "cannot be empty"}}
	}
	if _, ok := c.Backend(id); !ok {
		return []ValidationError{{Field: field, Value: id, Message: "must name a declared backend"}}
	}
	return nil
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	if slices.Contains(ValidOutputFormats(), c.Output.Format) {
		return nil
	}
	return []ValidationError{{
		Field:   "output.format",
		Value:   c.Output.Format,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
	}}
}
