package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/visionnaire/assistant-go/core"
)

// Recorder durably writes finished turns to the chat log, best-effort.
type Recorder struct {
	store    Store
	embedder Embedder
}

// NewRecorder creates a Recorder.
func NewRecorder(store Store, embedder Embedder) *Recorder {
	return &Recorder{store: store, embedder: embedder}
}

// Record persists one turn. Only the human message is embedded; future
// retrieval keys off what the user asked, not what was answered. The
// assistant message travels as metadata.
//
// A turn with no user and a turn with both messages empty are unusable for
// history reconstruction, so they are dropped without touching the store.
// Failures are returned for the caller to log once; they must not abort the
// turn flow.
func (r *Recorder) Record(ctx context.Context, userID, humanMessage, aiMessage string) error {
	if userID == "" || (humanMessage == "" && aiMessage == "") {
		log.Printf("[RECORD] Skipping unusable turn: user=%q, human=%d bytes, ai=%d bytes",
			userID, len(humanMessage), len(aiMessage))
		return nil
	}

	// One timestamp for both the id and the metadata. Recomputing it
	// between the two would skew the chronological sort on read.
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	embedding, err := r.embedder.Embed(ctx, humanMessage)
	if err != nil {
		return fmt.Errorf("embed turn: %w", err)
	}

	rec := Record{
		ID:        userID + "_" + timestamp,
		Embedding: embedding,
		Metadata: core.TurnMetadata{
			UserID:       userID,
			Timestamp:    timestamp,
			HumanMessage: humanMessage,
			AIMessage:    aiMessage,
		}.ToMap(),
	}

	if err := r.store.Upsert(ctx, ChatNamespace, rec); err != nil {
		return fmt.Errorf("upsert turn: %w", err)
	}
	return nil
}
