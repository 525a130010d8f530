package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/dangtiendungai/docquery/internal/config"
)

// Ollama is an LLM client backed by a local Ollama server.
type Ollama struct {
	client      *ollama.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOllama creates a new Ollama chat client. An empty cfg.BaseURL
// defaults to the local Ollama address.
func NewOllama(cfg config.LLMConfig) (*Ollama, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	hc := &http.Client{
		Timeout: 120 * time.Second,
	}

	return &Ollama{
		client:      ollama.NewClient(parsedURL, hc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete generates a completion for the given system and user prompts.
func (o *Ollama) Complete(ctx context.Context, system, user string) (string, error) {
	stream := false
	options := map[string]any{
		"temperature": o.temperature,
	}
	if o.maxTokens > 0 {
		options["num_predict"] = o.maxTokens
	}

	var sb strings.Builder
	err := o.client.Chat(ctx, &ollama.ChatRequest{
		Model: o.model,
		Messages: []ollama.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream:  &stream,
		Options: options,
	}, func(resp ollama.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate completion with ollama: %w", err)
	}

	return sb.String(), nil
}

var _ LLM = (*Ollama)(nil)
