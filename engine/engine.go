// Package engine orchestrates one conversational turn: reconcile history,
// generate a retrieval-augmented answer, record the turn.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/visionnaire/assistant-go/core"
	"github.com/visionnaire/assistant-go/memory"
	"github.com/visionnaire/assistant-go/observability"
)

// Engine runs the per-turn pipeline. Turns execute strictly sequentially:
// reconcile, then retrieve+generate, then record. Boundary failures are
// logged here, exactly once, and converted to degraded results; a turn
// always yields an answer and an updated session history.
type Engine struct {
	reconciler *memory.Reconciler
	responder  *Responder
	recorder   *memory.Recorder
	metrics    *observability.Metrics
}

// Option configures the engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instruments to the turn pipeline.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an Engine.
func NewEngine(reconciler *memory.Reconciler, responder *Responder, recorder *memory.Recorder, opts ...Option) *Engine {
	e := &Engine{
		reconciler: reconciler,
		responder:  responder,
		recorder:   recorder,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	// Answer is the assistant's reply. Empty only when the input was
	// rejected before any external call.
	Answer string

	// History is the session history including this turn's exchange.
	History []core.Message

	// Degraded marks an answer produced from a failure instead of the
	// generation capability.
	Degraded bool
}

// Turn processes one user message against the user's accumulated history.
//
// An empty user id or message short-circuits before any external call and
// returns the session history unchanged.
func (e *Engine) Turn(ctx context.Context, userID, message string, session []core.Message) *TurnResult {
	if userID == "" || message == "" {
		log.Printf("[ENGINE] Rejecting turn: user=%q, message=%d bytes", userID, len(message))
		return &TurnResult{History: session}
	}

	start := time.Now()
	result := &TurnResult{}

	history, err := e.reconciler.Reconcile(ctx, userID, session, message)
	if err != nil {
		log.Printf("[RECONCILE] Persisted history unavailable for user %s: %v", userID, err)
		if e.metrics != nil {
			e.metrics.HistoryFetchFailures.Inc()
		}
	}

	answer, err := e.responder.Respond(ctx, userID, message, history)
	if err != nil {
		log.Printf("[RESPOND] Degraded answer for user %s: %v", userID, err)
		result.Degraded = true
		if e.metrics != nil {
			e.metrics.DegradedAnswers.Inc()
		}
	}
	result.Answer = answer

	// The turn is recorded even when the answer is an error answer, so the
	// persisted history matches what the user saw.
	if err := e.recorder.Record(ctx, userID, message, answer); err != nil {
		log.Printf("[RECORD] Failed to persist turn for user %s: %v", userID, err)
		if e.metrics != nil {
			e.metrics.PersistFailures.Inc()
		}
	}

	result.History = append(append([]core.Message{}, session...),
		core.NewHumanMessage(message), core.NewAIMessage(answer))

	if e.metrics != nil {
		e.metrics.ObserveTurn(time.Since(start))
	}
	return result
}
