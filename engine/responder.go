package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/visionnaire/assistant-go/core"
	"github.com/visionnaire/assistant-go/memory"
)

// Responder answers one question: it retrieves knowledge passages scoped to
// the user, renders the three-slot prompt, and invokes generation once.
type Responder struct {
	knowledge *memory.KnowledgeBase
	generator Generator
	prompt    *Prompt
}

// NewResponder creates a Responder. A nil prompt selects the default
// template.
func NewResponder(knowledge *memory.KnowledgeBase, generator Generator, prompt *Prompt) *Responder {
	if prompt == nil {
		prompt = NewPrompt()
	}
	return &Responder{
		knowledge: knowledge,
		generator: generator,
		prompt:    prompt,
	}
}

// Respond produces the answer for one turn. It always returns usable answer
// text: embedding, retrieval, or generation failures yield a textual error
// answer and a non-nil error for the caller to log once. The turn is never
// dropped.
func (r *Responder) Respond(ctx context.Context, userID, message string, history []core.Message) (string, error) {
	passages, err := r.knowledge.Retrieve(ctx, userID, message)
	if err != nil {
		return errorAnswer(err), err
	}

	prompt, err := r.prompt.Render(contextBlock(passages), FormatHistory(history), message)
	if err != nil {
		return errorAnswer(err), err
	}

	answer, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return errorAnswer(err), err
	}
	return answer, nil
}

func contextBlock(passages []memory.Passage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n")
}

// errorAnswer is the caller-visible answer for a failed turn. It is recorded
// like any other assistant message so the history stays complete.
func errorAnswer(err error) string {
	return fmt.Sprintf("Error during response generation: %v", err)
}
