package engine

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/visionnaire/assistant-go/core"
)

// DefaultTemplate is the generation prompt. Its three named slots — context,
// history, question — and their order are an external contract: stored
// prompts and tests in other deployments depend on the slot names.
const DefaultTemplate = `
You are a chatbot. Use the following context (delimited by <ctx></ctx>) and the chat history (delimited by <hs></hs>) to answer the question:
------
<ctx>
{{.context}}
</ctx>
------
<hs>
{{.history}}
</hs>
------
{{.question}}
Answer:
`

// Prompt renders the three-slot generation prompt.
type Prompt struct {
	tmpl *template.Template
}

// NewPrompt parses the default template.
func NewPrompt() *Prompt {
	p, err := ParsePrompt(DefaultTemplate)
	if err != nil {
		panic(err) // the default template is a compile-time constant
	}
	return p
}

// ParsePrompt parses a custom template text. The text must reference the
// context, history, and question slots.
func ParsePrompt(text string) (*Prompt, error) {
	tmpl, err := template.New("prompt").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Render fills the slots in their fixed order: context, history, question.
func (p *Prompt) Render(context, history, question string) (string, error) {
	var b strings.Builder
	err := p.tmpl.Execute(&b, map[string]string{
		"context":  context,
		"history":  history,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// FormatHistory renders a reconciled history into the prompt's history slot,
// one line per message.
func FormatHistory(history []core.Message) string {
	var lines []string
	for _, msg := range history {
		switch msg.Role {
		case core.RoleAI:
			lines = append(lines, "AI: "+msg.Content)
		default:
			lines = append(lines, "Human: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}
