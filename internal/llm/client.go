// Package llm abstracts the text-generation backend: a prompt goes in, the
// model's raw text comes out. Backends: local Ollama, Google GenAI.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Client submits a prompt to a language model and returns its text output.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and configures a backend.
type Config struct {
	Provider string // "ollama" or "genai"

	OllamaEndpoint string
	OllamaModel    string

	GenAIAPIKey string
	GenAIModel  string

	Temperature float64
	Timeout     time.Duration
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	switch cfg.Provider {
	case "ollama":
		return NewOllamaClient(cfg.OllamaEndpoint, cfg.OllamaModel, cfg.Temperature, cfg.Timeout), nil
	case "genai":
		return NewGenAIClient(cfg.GenAIAPIKey, cfg.GenAIModel, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q (use 'ollama' or 'genai')", cfg.Provider)
	}
}
