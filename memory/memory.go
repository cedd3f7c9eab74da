package memory

import "context"

// ChatNamespace is the store namespace holding the durable chat log for all
// users. Records in it are scoped per user through the user_id metadata
// filter, not through separate namespaces.
const ChatNamespace = "chat"

// KnowledgeNamespace returns the store namespace holding knowledge passages
// for one user.
func KnowledgeNamespace(userID string) string {
	return "kb_" + userID
}

// Record is one (id, vector, metadata) triple for upsert.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
}

// Match is one query result, ordered by descending score in query output.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Store is the vector storage backend.
// Implementations: chromem store (embedded, local), hosted index (production).
type Store interface {
	// Upsert writes a record into a namespace. Idempotent on identical ID.
	Upsert(ctx context.Context, namespace string, rec Record) error

	// Query returns up to topK matches by vector similarity, restricted to
	// records whose metadata contains every filter key/value pair. Matches
	// always include metadata.
	Query(ctx context.Context, namespace string, probe []float32, filter map[string]string, topK int) ([]Match, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to a fixed-length vector.
// Implementations: OpenAI API embedder, mock (testing).
type Embedder interface {
	// Embed converts a single text to its embedding vector.
	// A failure surfaces as an error, never as a malformed vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Config holds the bounds of the memory pipeline.
type Config struct {
	// MaxHistory caps how many persisted messages are carried into a turn.
	MaxHistory int

	// FetchLimit bounds how many persisted records one history fetch may
	// return from the store.
	FetchLimit int

	// TopK is the number of knowledge passages retrieved per question.
	TopK int
}

// DefaultConfig holds the default pipeline bounds.
var DefaultConfig = &Config{
	MaxHistory: 20,
	FetchLimit: 1000,
	TopK:       4,
}
