// Package errors provides centralized error definitions and error handling utilities
// for quorum. It defines the backend failure taxonomy, run-level aggregation
// errors, error constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of the orchestration engine:
//   - BackendError: one backend invocation failed (kind, backend, HTTP status)
//   - AggregationError: every slot of a dispatch round or debate failed
//   - SynthesisError: the final arbiter call failed
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input, configuration or state
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewBackendError(errors.KindRateLimited, "openai", "throttled", nil).
//	    WithStatusCode(429)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrBackendTimeout) { ... }
//
//	var aggErr *errors.AggregationError
//	if errors.As(err, &aggErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Backend-related sentinel errors
var (
	// ErrBackendUnavailable indicates a network or connection failure.
	ErrBackendUnavailable = New("backend unavailable")
	// ErrBackendAuth indicates the backend rejected the credentials.
	ErrBackendAuth = New("backend authentication failed")
	// ErrBackendRateLimited indicates the backend throttled the request.
	ErrBackendRateLimited = New("backend rate limited")
	// ErrBackendTimeout indicates the call exceeded its deadline.
	ErrBackendTimeout = New("backend timed out")
	// ErrMalformedResponse indicates a response shape the adapter cannot normalize.
	ErrMalformedResponse = New("malformed backend response")
)

// Run-related sentinel errors
var (
	// ErrAggregation indicates every slot of a round failed.
	ErrAggregation = New("all backends failed")
	// ErrSourceUnavailable indicates the problem source could not be read.
	ErrSourceUnavailable = New("problem source unavailable")
	// ErrSynthesis indicates the final synthesis call failed.
	ErrSynthesis = New("synthesis failed")
)

// General sentinel errors
var (
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// Kind names a backend failure category.
type Kind string

const (
	KindUnavailable Kind = "BackendUnavailable"
	KindAuth        Kind = "BackendAuthError"
	KindRateLimited Kind = "BackendRateLimited"
	KindTimeout     Kind = "BackendTimeout"
	KindMalformed   Kind = "MalformedResponse"
	KindCanceled    Kind = "Canceled"
)

// sentinel returns the sentinel error matching the kind.
func (k Kind) sentinel() error {
	switch k {
	case KindUnavailable:
		return ErrBackendUnavailable
	case KindAuth:
		return ErrBackendAuth
	case KindRateLimited:
		return ErrBackendRateLimited
	case KindTimeout:
		return ErrBackendTimeout
	case KindMalformed:
		return ErrMalformedResponse
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// QuorumError is the base interface for all quorum errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type QuorumError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// BackendError represents one failed backend invocation.
//
// Example:
//
//	err := errors.NewBackendError(errors.KindAuth, "anthropic", "credential rejected", nil).
//	    WithStatusCode(401)
//	fmt.Println(err) // "BackendAuthError [backend=anthropic, status=401]: credential rejected"
type BackendError struct {
	baseError
	Kind       Kind
	BackendID  string
	StatusCode int
}

// NewBackendError creates a new BackendError. Rate limits, timeouts and
// connection failures are marked retryable.
func NewBackendError(kind Kind, backendID, message string, cause error) *BackendError {
	retryable := kind == KindRateLimited || kind == KindTimeout || kind == KindUnavailable
	severity := SeverityError
	if kind == KindCanceled {
		severity = SeverityInfo
	}
	return &BackendError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   severity,
			retryable:  retryable,
			userFacing: true,
		},
		Kind:      kind,
		BackendID: backendID,
	}
}

// WithStatusCode records the HTTP status returned by the backend.
func (e *BackendError) WithStatusCode(code int) *BackendError {
	e.StatusCode = code
	return e
}

// WithSeverity sets the error severity.
func (e *BackendError) WithSeverity(s Severity) *BackendError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *BackendError) WithRetryable(r bool) *BackendError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *BackendError) Error() string {
	var parts []string
	if e.BackendID != "" {
		parts = append(parts, fmt.Sprintf("backend=%s", e.BackendID))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	prefix := string(e.Kind)
	if prefix == "" {
		prefix = "backend error"
	}
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target. A BackendError matches the
// sentinel of its kind.
func (e *BackendError) Is(target error) bool {
	if _, ok := target.(*BackendError); ok {
		return true
	}
	if s := e.Kind.sentinel(); s != nil && target == s {
		return true
	}
	return e.baseError.Is(target)
}

// AggregationError is raised when every slot of a round failed. The slot
// errors are joined into the cause so errors.Is finds each of them.
//
// Example:
//
//	err := errors.NewAggregationError("dispatch", slotErrs)
//	fmt.Println(err) // "aggregation error [stage=dispatch, failed=2]: all backends failed: ..."
type AggregationError struct {
	baseError
	Stage    string
	Failures []error
}

// NewAggregationError creates a new AggregationError for the given stage.
func NewAggregationError(stage string, failures []error) *AggregationError {
	return &AggregationError{
		baseError: baseError{
			message:    "all backends failed",
			cause:      Join(failures...),
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		Stage:    stage,
		Failures: failures,
	}
}

// Error returns the formatted error message.
func (e *AggregationError) Error() string {
	prefix := fmt.Sprintf("aggregation error [stage=%s, failed=%d]", e.Stage, len(e.Failures))
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.message, strings.ReplaceAll(e.cause.Error(), "\n", "; "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *AggregationError) Is(target error) bool {
	if _, ok := target.(*AggregationError); ok {
		return true
	}
	if target == ErrAggregation {
		return true
	}
	return e.baseError.Is(target)
}

// SynthesisError represents a failure of the final arbiter call. It is
// always fatal to the run.
type SynthesisError struct {
	baseError
	ArbiterID string
}

// NewSynthesisError creates a new SynthesisError.
func NewSynthesisError(arbiterID string, cause error) *SynthesisError {
	return &SynthesisError{
		baseError: baseError{
			message:    "final synthesis failed",
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		ArbiterID: arbiterID,
	}
}

// Error returns the formatted error message.
func (e *SynthesisError) Error() string {
	prefix := "synthesis error"
	if e.ArbiterID != "" {
		prefix = fmt.Sprintf("synthesis error [arbiter=%s]", e.ArbiterID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SynthesisError) Is(target error) bool {
	if _, ok := target.(*SynthesisError); ok {
		return true
	}
	if target == ErrSynthesis {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("backend id cannot be empty")
//	err = err.WithField("backends[0].id").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the backend failure kind carried by err. Context
// cancellation and deadline errors are classified even when no adapter
// wrapped them. Unknown errors report KindUnavailable.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var backendErr *BackendError
	if As(err, &backendErr) && backendErr.Kind != "" {
		return backendErr.Kind
	}

	switch {
	case Is(err, context.DeadlineExceeded), Is(err, ErrBackendTimeout):
		return KindTimeout
	case Is(err, context.Canceled), Is(err, ErrCanceled):
		return KindCanceled
	case Is(err, ErrBackendAuth):
		return KindAuth
	case Is(err, ErrBackendRateLimited):
		return KindRateLimited
	case Is(err, ErrMalformedResponse):
		return KindMalformed
	default:
		return KindUnavailable
	}
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing QuorumError with IsRetryable() returning true
//   - Errors wrapping ErrBackendTimeout or ErrBackendRateLimited
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var quorumErr QuorumError
	if As(err, &quorumErr) {
		return quorumErr.IsRetryable()
	}

	return Is(err, ErrBackendTimeout) || Is(err, ErrBackendRateLimited)
}

// IsUserFacing returns true if the error message is safe to display to end users.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var quorumErr QuorumError
	if As(err, &quorumErr) {
		return quorumErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement QuorumError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var quorumErr QuorumError
	if As(err, &quorumErr) {
		return quorumErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this returns nil for a nil error.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to read problem")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "debate turn %d", turn)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
