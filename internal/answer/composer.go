// Package answer composes grounded answers from retrieved manual context,
// falling back to ungrounded generation when a device has no manual.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/index"
	"github.com/medassist/device-assistant/internal/manual"
	"github.com/medassist/device-assistant/internal/model"
)

// sourceTextLimit bounds the chunk text echoed back in source summaries.
const sourceTextLimit = 500

// ManualResolver locates the manual for a device, returning
// manual.ErrNoManual when none is available.
type ManualResolver interface {
	Resolve(ctx context.Context, identity model.DeviceIdentity) (string, error)
}

// Indexer loads or builds the searchable index for a manual.
type Indexer interface {
	GetIndex(ctx context.Context, manualPath string) (*index.Index, error)
}

// Retriever returns the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, idx *index.Index, question string) ([]model.RetrievedChunk, error)
}

// Generator produces answer text from a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider renders manual page images for citations. May be nil.
type ImageProvider interface {
	ImagesForPages(ctx context.Context, manualPath string, pageLabels []string) []model.PageImage
}

// Composer runs the per-question answering pipeline.
type Composer struct {
	resolver      ManualResolver
	indexes       Indexer
	retriever     Retriever
	generator     Generator
	images        ImageProvider
	historyWindow int
	maxImages     int
}

// NewComposer wires an answer Composer. images may be nil to skip page-image
// attachment. historyWindow bounds how many trailing turns reach the prompt.
func NewComposer(resolver ManualResolver, indexes Indexer, retriever Retriever, generator Generator, images ImageProvider, historyWindow, maxImages int) *Composer {
	if historyWindow <= 0 {
		historyWindow = 4
	}
	if maxImages <= 0 {
		maxImages = 5
	}
	return &Composer{
		resolver:      resolver,
		indexes:       indexes,
		retriever:     retriever,
		generator:     generator,
		images:        images,
		historyWindow: historyWindow,
		maxImages:     maxImages,
	}
}

// Answer produces exactly one Answer per question, or an error when neither
// a grounded nor a fallback answer could be generated. A device with no
// resolvable manual always takes the fallback path (is_fallback=true, no
// sources, zero confidence); index-build and generation failures are hard
// errors. History is read-only: a failed call leaves it untouched for a
// clean retry.
func (c *Composer) Answer(ctx context.Context, identity model.DeviceIdentity, question string, history []model.ConversationTurn) (model.Answer, error) {
	manualPath, err := c.resolver.Resolve(ctx, identity)
	if err != nil {
		if errors.Is(err, manual.ErrNoManual) {
			return c.fallback(ctx, identity, question)
		}
		return model.Answer{}, eris.Wrap(err, "answer: resolve manual")
	}

	idx, err := c.indexes.GetIndex(ctx, manualPath)
	if err != nil {
		return model.Answer{}, eris.Wrap(err, "answer: build index")
	}

	// Retrieval sees the question alone; history must not steer it toward
	// the previous topic.
	retrieved, err := c.retriever.Retrieve(ctx, idx, question)
	if err != nil {
		return model.Answer{}, eris.Wrap(err, "answer: retrieve context")
	}

	text, err := c.generator.Generate(ctx, groundedPrompt(retrieved, history, question, c.historyWindow))
	if err != nil {
		return model.Answer{}, eris.Wrap(err, "answer: generate")
	}

	ans := model.Answer{
		Text:       text,
		Sources:    summarizeSources(retrieved),
		Confidence: meanScore(retrieved),
		IsFallback: false,
	}
	ans.Images = c.attachImages(ctx, manualPath, retrieved)

	return ans, nil
}

// fallback generates from general knowledge with no manual grounding. This
// is a terminal branch, not an error: the caller surfaces the "not from the
// official manual" indicator off is_fallback.
func (c *Composer) fallback(ctx context.Context, identity model.DeviceIdentity, question string) (model.Answer, error) {
	zap.L().Info("no manual available, answering from general knowledge",
		zap.String("device", identity.DisplayName()),
	)

	text, err := c.generator.Generate(ctx, fallbackPrompt(identity, question))
	if err != nil {
		return model.Answer{}, eris.Wrap(err, "answer: fallback generate")
	}

	return model.Answer{
		Text:       text,
		Sources:    []model.Source{},
		Confidence: 0,
		IsFallback: true,
	}, nil
}

// attachImages renders images for the distinct pages behind the retrieved
// chunks. Best-effort; failure to find images never fails the answer.
func (c *Composer) attachImages(ctx context.Context, manualPath string, retrieved []model.RetrievedChunk) []model.PageImage {
	if c.images == nil {
		return nil
	}

	seen := make(map[string]bool)
	var labels []string
	for _, r := range retrieved {
		label := r.Chunk.PageLabel
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return nil
	}

	images := c.images.ImagesForPages(ctx, manualPath, labels)
	if len(images) > c.maxImages {
		images = images[:c.maxImages]
	}
	return images
}

func summarizeSources(retrieved []model.RetrievedChunk) []model.Source {
	sources := make([]model.Source, len(retrieved))
	for i, r := range retrieved {
		text := r.Chunk.Text
		if len(text) > sourceTextLimit {
			text = text[:sourceTextLimit] + "..."
		}
		sources[i] = model.Source{
			Text:  text,
			Score: r.Score,
			Page:  r.Chunk.PageLabel,
		}
	}
	return sources
}

func meanScore(retrieved []model.RetrievedChunk) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	var total float64
	for _, r := range retrieved {
		total += r.Score
	}
	return total / float64(len(retrieved))
}

// groundedPrompt combines retrieved context, a bounded history window and
// the current question. The instruction makes history advisory: a topic
// change must be answered from the manual context alone.
func groundedPrompt(retrieved []model.RetrievedChunk, history []model.ConversationTurn, question string, historyWindow int) string {
	contexts := make([]string, len(retrieved))
	for i, r := range retrieved {
		contexts[i] = r.Chunk.Text
	}
	contextStr := strings.Join(contexts, "\n\n")

	if len(history) == 0 {
		return fmt.Sprintf(`Based on the following information from the device manual:

%s

Question: %s

Please provide an accurate, helpful answer based on the manual information above.`, contextStr, question)
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var hb strings.Builder
	hb.WriteString("Previous conversation for reference:\n")
	for _, turn := range history {
		role := "User"
		if turn.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&hb, "%s: %s\n", role, turn.Content)
	}

	return fmt.Sprintf(`Based on the following information from the device manual:

%s

%s
Current question: %s

IMPORTANT: Answer the current question based on the manual information above.
- If this is a follow-up question (e.g., "what about...", "and how do I..."), use the conversation history for context.
- If this is a NEW TOPIC unrelated to the previous conversation, ignore the history and answer based solely on the manual.
- Provide accurate, helpful information.`, contextStr, hb.String(), question)
}

func fallbackPrompt(identity model.DeviceIdentity, question string) string {
	return fmt.Sprintf(`You are helping a user find information about a medical device: %s

The user's question is: %s

IMPORTANT INSTRUCTIONS:
1. Answer based on your general knowledge about this device from publicly available sources
2. Be helpful but cautious - this is medical equipment
3. At the end of your response, suggest 2-3 specific resources where the user might find official documentation:
   - Manufacturer's official website
   - FDA database (if applicable)
   - Medical equipment databases
4. Keep your answer concise but informative
5. If you're uncertain about specific technical details, clearly state that

Remember: Your response will be clearly labeled as coming from internet sources, NOT an official manual.`, identity.DisplayName(), question)
}
