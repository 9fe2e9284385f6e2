// Package backend adapts language-model services to one uniform call:
// send a system prompt and a user prompt, get normalized text back.
//
// Adapters never retry. Every failure they return is an
// *errors.BackendError whose Kind tells the caller what went wrong.
package backend

import (
	"context"
	"strings"

	"github.com/Iron-Ham/quorum/internal/errors"
)

// Tunables are the per-call generation parameters. Zero values mean
// "use the adapter default".
type Tunables struct {
	Temperature float64
	MaxTokens   int
}

// Backend is one language-model service.
type Backend interface {
	// ID is the stable identifier used in votes, filters and debate roles.
	ID() string
	// DisplayName is the human label used in prompts and output.
	DisplayName() string
	// Invoke performs exactly one call and returns the trimmed response
	// text. An empty systemPrompt selects the backend's default.
	Invoke(ctx context.Context, systemPrompt, userPrompt string, t Tunables) (string, error)
}

// InvokeFunc is the signature wrapped by Func.
type InvokeFunc func(ctx context.Context, systemPrompt, userPrompt string, t Tunables) (string, error)

// Func turns a Go function into a Backend. Errors returned by the
// function are normalized to *errors.BackendError and the text is trimmed
// like any other adapter's.
type Func struct {
	id   string
	name string
	fn   InvokeFunc
}

// NewFunc creates a Func backend. An empty name falls back to the id.
func NewFunc(id, name string, fn InvokeFunc) *Func {
	if name == "" {
		name = id
	}
	return &Func{id: id, name: name, fn: fn}
}

func (f *Func) ID() string { return f.id }

func (f *Func) DisplayName() string { return f.name }

func (f *Func) Invoke(ctx context.Context, systemPrompt, userPrompt string, t Tunables) (string, error) {
	text, err := f.fn(ctx, systemPrompt, userPrompt, t)
	if err != nil {
		return "", Normalize(f.id, err)
	}
	return finishText(f.id, text)
}

// Normalize converts any error into an *errors.BackendError for backendID,
// keeping an existing BackendError as is.
func Normalize(backendID string, err error) error {
	if err == nil {
		return nil
	}
	var be *errors.BackendError
	if errors.As(err, &be) {
		if be.BackendID == "" {
			be.BackendID = backendID
		}
		return be
	}
	return errors.NewBackendError(errors.KindOf(err), backendID, "call failed", err)
}

// finishText trims the response and rejects empty text.
func finishText(backendID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewBackendError(errors.KindMalformed, backendID, "empty response text", nil)
	}
	return text, nil
}
