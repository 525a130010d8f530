package llm

import (
	"context"
	"fmt"

	"github.com/dangtiendungai/docquery/internal/config"
)

// LLM generates a completion for a system/user prompt pair.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewLLM builds the LLM named by the configuration. An empty provider
// name means generation is disabled and returns (nil, nil).
func NewLLM(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAI(cfg)
	case "ollama":
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
