// Package embedding provides text embedding generation with multiple backend support.
package embedding

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding providers.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one vector per input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// Must match the vector index dimension of the remote store.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderOllama uses a local Ollama server through langchaingo.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses any OpenAI compatible embeddings API through langchaingo.
	ProviderOpenAI ProviderType = "openai"

	// ProviderGenAI uses the Google Gemini embeddings API.
	ProviderGenAI ProviderType = "genai"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	Provider  ProviderType
	Model     string
	Dimension int

	// Ollama
	OllamaHost string

	// OpenAI compatible
	OpenAIAPIKey   string
	OpenAIEndpoint string

	// Google GenAI
	GenAIAPIKey string
}

// New creates an Embedder based on the provided configuration.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}

	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllama(cfg)
	case ProviderOpenAI:
		return NewOpenAI(cfg)
	case ProviderGenAI:
		return NewGenAI(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
