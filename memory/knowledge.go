package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MetaText is the metadata key carrying a knowledge passage's text.
const MetaText = "text"

// Passage is one retrieved knowledge snippet.
type Passage struct {
	ID    string
	Score float32
	Text  string
}

// KnowledgeBase retrieves knowledge passages scoped to one user's namespace.
// It also supports ingestion, so deployments can load a user's documents
// into the same store that holds the chat log.
type KnowledgeBase struct {
	store    Store
	embedder Embedder
	config   *Config
}

// NewKnowledgeBase creates a KnowledgeBase.
func NewKnowledgeBase(store Store, embedder Embedder, config *Config) *KnowledgeBase {
	if config == nil {
		config = DefaultConfig
	}
	return &KnowledgeBase{store: store, embedder: embedder, config: config}
}

// Add ingests one passage into the user's knowledge namespace.
func (k *KnowledgeBase) Add(ctx context.Context, userID, text string) error {
	if text == "" {
		return fmt.Errorf("empty passage")
	}
	embedding, err := k.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed passage: %w", err)
	}
	rec := Record{
		ID:        uuid.NewString(),
		Embedding: embedding,
		Metadata:  map[string]string{MetaText: text},
	}
	if err := k.store.Upsert(ctx, KnowledgeNamespace(userID), rec); err != nil {
		return fmt.Errorf("upsert passage: %w", err)
	}
	return nil
}

// Retrieve returns the top-k passages most similar to query, best first.
func (k *KnowledgeBase) Retrieve(ctx context.Context, userID, query string) ([]Passage, error) {
	embedding, err := k.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := k.store.Query(ctx, KnowledgeNamespace(userID), embedding, nil, k.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}

	passages := make([]Passage, 0, len(matches))
	for _, match := range matches {
		passages = append(passages, Passage{
			ID:    match.ID,
			Score: match.Score,
			Text:  match.Metadata[MetaText],
		})
	}
	return passages, nil
}
