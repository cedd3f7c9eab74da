// Package memory implements the conversation-memory pipeline: reconciling
// persisted per-user chat history with the live session, recording each
// completed turn, and retrieving knowledge passages for answer generation.
//
// Turns are namespaced by user. Each persisted turn carries the typed
// metadata record defined in core (user_id, timestamp, both message halves)
// and is keyed by user_id plus timestamp, so history can be rebuilt from the
// store alone.
//
// Architecture:
//   - Store: vector storage backend (chromem-go embedded DB locally,
//     a hosted index in production)
//   - Embedder: text-to-vector conversion (OpenAI API, mock for tests)
//   - Reconciler: merges persisted and session history for one turn
//   - Recorder: durably writes a finished turn, best-effort
//   - KnowledgeBase: user-scoped similarity retrieval over the same store
package memory
