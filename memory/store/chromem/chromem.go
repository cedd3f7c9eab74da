// Package chromem adapts chromem-go, a pure Go embedded vector database,
// to the memory.Store interface.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/visionnaire/assistant-go/core"
	"github.com/visionnaire/assistant-go/memory"
)

// Store wraps chromem-go. Each namespace maps to one chromem collection.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory chromem store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (s *Store) getOrCreateCollection(namespace string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[namespace]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, exists := s.collections[namespace]; exists {
		return col, nil
	}

	name := namespace
	if name == "" {
		name = "default"
	}
	col, err := s.db.CreateCollection(
		name,
		nil, // embeddings are always supplied by the caller
		nil, // default cosine distance
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[namespace] = col
	return col, nil
}

// Upsert writes a record into a namespace.
func (s *Store) Upsert(ctx context.Context, namespace string, rec memory.Record) error {
	col, err := s.getOrCreateCollection(namespace)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   documentContent(rec.Metadata),
		Embedding: rec.Embedding,
		Metadata:  rec.Metadata,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query returns up to topK matches filtered by metadata.
//
// chromem-go rejects result counts larger than the collection, so the limit
// shrinks until the query succeeds; an empty collection yields no matches.
func (s *Store) Query(ctx context.Context, namespace string, probe []float32, filter map[string]string, topK int) ([]memory.Match, error) {
	col, err := s.getOrCreateCollection(namespace)
	if err != nil {
		return nil, err
	}

	limit := topK
	if count := col.Count(); limit > count {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	var results []chromem.Result
	for ; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, probe, limit, filter, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				log.Printf("[CHROMEM] No queryable documents in collection %q", namespace)
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]memory.Match, 0, len(results))
	for _, result := range results {
		matches = append(matches, memory.Match{
			ID:       result.ID,
			Score:    result.Similarity,
			Metadata: result.Metadata,
		})
	}
	return matches, nil
}

// Close releases resources. chromem keeps everything in memory.
func (s *Store) Close() error {
	return nil
}

// documentContent picks the text chromem indexes as document content. The
// store itself only ever matches on embeddings and metadata.
func documentContent(meta map[string]string) string {
	if text := meta[memory.MetaText]; text != "" {
		return text
	}
	return meta[core.MetaHumanMessage]
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
