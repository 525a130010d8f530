package embedder

import (
	"context"
	"fmt"

	"github.com/dangtiendungai/docquery/internal/config"
)

// Provider generates embedding vectors for text. Implementations wrap a
// specific model vendor's API.
type Provider interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts. The
	// result has one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider builds the Provider named by the configuration. An empty
// provider name means embeddings are disabled and returns (nil, nil).
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "ollama":
		return NewOllamaProvider(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
