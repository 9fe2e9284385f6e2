package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/Iron-Ham/quorum/internal/errors"
)

// anthropicVersion is the Messages API version header value.
const anthropicVersion = "2023-06-01"

// AnthropicBackend talks to the Anthropic Messages API.
type AnthropicBackend struct {
	id   string
	name string
	cfg  ProviderConfig
	http httpCaller
}

// NewAnthropicBackend creates an Anthropic backend.
func NewAnthropicBackend(id, name string, cfg ProviderConfig, opts ...Option) *AnthropicBackend {
	return newAnthropicBackend(id, name, cfg, buildOptions(opts).client)
}

func newAnthropicBackend(id, name string, cfg ProviderConfig, client *http.Client) *AnthropicBackend {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultProviderConfig(ProviderAnthropic).MaxTokens
	}
	return &AnthropicBackend{
		id:   id,
		name: name,
		cfg:  cfg,
		http: httpCaller{id: id, client: client},
	}
}

func (b *AnthropicBackend) ID() string { return b.id }

func (b *AnthropicBackend) DisplayName() string { return b.name }

// Model returns the configured model name.
func (b *AnthropicBackend) Model() string { return b.cfg.Model }

func (b *AnthropicBackend) Invoke(ctx context.Context, systemPrompt, userPrompt string, t Tunables) (string, error) {
	if b.cfg.APIKey == "" {
		return "", missingKey(b.id)
	}
	if systemPrompt == "" {
		systemPrompt = b.cfg.SystemPrompt
	}

	req := anthropicRequest{
		Model:       b.cfg.Model,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
		MaxTokens:   t.MaxTokens,
		Temperature: t.Temperature,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = b.cfg.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = b.cfg.Temperature
	}

	headers := map[string]string{
		"x-api-key":         b.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := b.http.postJSON(ctx, b.cfg.Endpoint+"/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if len(resp.Content) == 0 {
		return "", errors.NewBackendError(errors.KindMalformed, b.id, "no content blocks in response", nil)
	}
	return finishText(b.id, sb.String())
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
