package answer

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/medassist/device-assistant/pkg/anthropic"
)

// AnthropicGenerator implements Generator on top of the Anthropic messages
// API with a fixed model. The prompt is sent verbatim as a single user turn
// and the reply text is used verbatim as the answer.
type AnthropicGenerator struct {
	client    anthropic.Client
	modelName string
	maxTokens int64
}

// NewAnthropicGenerator creates an AnthropicGenerator.
func NewAnthropicGenerator(client anthropic.Client, modelName string, maxTokens int64) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicGenerator{client: client, modelName: modelName, maxTokens: maxTokens}
}

// Generate runs one completion. No retry loop here: a failed turn surfaces
// as a hard chat error and the caller's history stays clean for retry.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.modelName,
		MaxTokens: g.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "answer: generation call")
	}
	return resp.Text, nil
}
