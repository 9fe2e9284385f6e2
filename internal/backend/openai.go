package backend

import (
	"context"
	"net/http"

	"github.com/Iron-Ham/quorum/internal/errors"
)

// OpenAIBackend talks to any OpenAI-compatible /chat/completions API:
// OpenAI itself, groq and ollama.
type OpenAIBackend struct {
	id   string
	name string
	cfg  ProviderConfig
	http httpCaller
}

// NewOpenAIBackend creates an OpenAI-compatible backend.
func NewOpenAIBackend(id, name string, cfg ProviderConfig, opts ...Option) *OpenAIBackend {
	return newOpenAIBackend(id, name, cfg, buildOptions(opts).client)
}

func newOpenAIBackend(id, name string, cfg ProviderConfig, client *http.Client) *OpenAIBackend {
	return &OpenAIBackend{
		id:   id,
		name: name,
		cfg:  cfg,
		http: httpCaller{id: id, client: client},
	}
}

func (b *OpenAIBackend) ID() string { return b.id }

func (b *OpenAIBackend) DisplayName() string { return b.name }

// Model returns the configured model name.
func (b *OpenAIBackend) Model() string { return b.cfg.Model }

func (b *OpenAIBackend) Invoke(ctx context.Context, systemPrompt, userPrompt string, t Tunables) (string, error) {
	if b.cfg.KeyRequired && b.cfg.APIKey == "" {
		return "", missingKey(b.id)
	}
	if systemPrompt == "" {
		systemPrompt = b.cfg.SystemPrompt
	}

	req := openAIChatRequest{
		Model: b.cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: t.Temperature,
		MaxTokens:   t.MaxTokens,
	}
	if req.Temperature == 0 {
		req.Temperature = b.cfg.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = b.cfg.MaxTokens
	}

	headers := map[string]string{}
	if b.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + b.cfg.APIKey
	}

	var resp openAIChatResponse
	if err := b.http.postJSON(ctx, b.cfg.Endpoint+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewBackendError(errors.KindMalformed, b.id, "no choices in response", nil)
	}
	return finishText(b.id, resp.Choices[0].Message.Content)
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
}
