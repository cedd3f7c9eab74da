// Package openai implements memory.Embedder on the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Config configures the embedder.
type Config struct {
	// Model is the embedding model name (default: text-embedding-3-small).
	Model string

	// Dimensions is the expected vector size (default: 1536).
	Dimensions int
}

// Embedder generates embeddings through the OpenAI API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// New creates an OpenAI embedder.
func New(apiKey string, cfg Config) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = openai.SmallEmbedding3
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	return &Embedder{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text to its embedding vector. A provider failure or a
// vector of unexpected shape surfaces as an error, never as a bad vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("openai embeddings: expected 1 result, got %d", len(resp.Data))
	}
	embedding := resp.Data[0].Embedding
	if len(embedding) != e.dimensions {
		return nil, fmt.Errorf("openai embeddings: expected %d dimensions, got %d", e.dimensions, len(embedding))
	}
	return embedding, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
