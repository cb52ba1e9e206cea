package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// DefaultGenAIModel is used when no model is configured for the genai provider.
const DefaultGenAIModel = "gemini-embedding-001"

// genaiBatchLimit is the maximum number of contents per EmbedContent call.
const genaiBatchLimit = 100

// GenAIEmbedder implements Embedder using the Google Gemini API.
type GenAIEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	taskType  string
}

// Compile-time check that GenAIEmbedder implements Embedder.
var _ Embedder = (*GenAIEmbedder)(nil)

// NewGenAI creates a Gemini embedder. Vectors are requested at cfg.Dimension
// so they fit the configured vector index.
func NewGenAI(ctx context.Context, cfg Config) (*GenAIEmbedder, error) {
	if cfg.GenAIAPIKey == "" {
		return nil, fmt.Errorf("GenAI API key required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGenAIModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GenAIAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIEmbedder{
		client:    client,
		model:     model,
		dimension: cfg.Dimension,
		taskType:  "RETRIEVAL_DOCUMENT",
	}, nil
}

// Model returns the configured embedding model name.
func (g *GenAIEmbedder) Model() string {
	return g.model
}

// Dimension returns the requested output dimensionality.
func (g *GenAIEmbedder) Dimension() int {
	return g.dimension
}

// Embed generates an embedding vector for the given text.
func (g *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings in chunks of at most genaiBatchLimit texts.
func (g *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += genaiBatchLimit {
		end := min(start+genaiBatchLimit, len(texts))

		contents := make([]*genai.Content, 0, end-start)
		for _, text := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		began := time.Now()
		resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
			TaskType:             g.taskType,
			OutputDimensionality: genai.Ptr(int32(g.dimension)),
		})
		if err != nil {
			return nil, fmt.Errorf("genai embed: %w", err)
		}
		if len(resp.Embeddings) != len(contents) {
			return nil, fmt.Errorf("count mismatch: got %d, want %d", len(resp.Embeddings), len(contents))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
		slog.Debug("genai embedding batch complete", "model", g.model, "texts", len(contents), "duration_ms", time.Since(began).Milliseconds())
	}

	if err := checkDimensions(out, g.dimension); err != nil {
		return nil, err
	}
	return out, nil
}
