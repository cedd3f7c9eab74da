package engine

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Generator is the text-generation capability. One call per turn; the
// implementation owns model choice and decoding configuration.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnthropicGenerator implements Generator on the Anthropic Messages API.
// Temperature is pinned to zero for deterministic-preferred answers.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicGenerator creates a generator with the given client.
func NewAnthropicGenerator(client *anthropic.Client, model string, maxTokens int64) *AnthropicGenerator {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &AnthropicGenerator{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

// Generate sends the rendered prompt as a single user message.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
