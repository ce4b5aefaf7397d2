package index

import (
	"regexp"
	"strings"

	"github.com/medassist/device-assistant/internal/model"
	"github.com/medassist/device-assistant/internal/ocr"
)

// sentenceRE matches one sentence including its terminator. Manual text that
// never terminates a sentence falls through to whole-text handling.
var sentenceRE = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Chunker packs sentences into chunks of roughly the configured token
// budget. Chunks never cross page boundaries, so every chunk carries an
// exact page label.
type Chunker struct {
	tokenTarget      int
	overlapSentences int
}

// NewChunker creates a Chunker. tokenTarget defaults to 512 and overlap to 0
// when out of range.
func NewChunker(tokenTarget, overlapSentences int) *Chunker {
	if tokenTarget <= 0 {
		tokenTarget = 512
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	return &Chunker{
		tokenTarget:      tokenTarget,
		overlapSentences: overlapSentences,
	}
}

// wordBudget approximates the token target in words. English prose averages
// roughly 0.75 words per token.
func (c *Chunker) wordBudget() int {
	return c.tokenTarget * 3 / 4
}

// ChunkPages splits extracted pages into retrieval chunks. Seq numbers are
// assigned in document order and are stable for identical input.
func (c *Chunker) ChunkPages(manualID string, pages []ocr.Page) []model.DocumentChunk {
	var chunks []model.DocumentChunk
	for _, page := range pages {
		for _, text := range c.splitText(page.Text) {
			chunks = append(chunks, model.DocumentChunk{
				Seq:          len(chunks),
				Text:         text,
				PageLabel:    page.Label,
				SourceManual: manualID,
			})
		}
	}
	return chunks
}

// splitText packs sentences into word-budgeted chunks with sentence overlap.
// Text with no sentence terminators is split on the budget directly.
func (c *Chunker) splitText(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	sentences := sentenceRE.FindAllString(trimmed, -1)
	if len(sentences) == 0 {
		return c.splitWords(trimmed)
	}
	for i := range sentences {
		sentences[i] = strings.Join(strings.Fields(sentences[i]), " ")
	}

	budget := c.wordBudget()
	var out []string
	start := 0
	for start < len(sentences) {
		words := 0
		end := start
		for end < len(sentences) {
			n := len(strings.Fields(sentences[end]))
			if end > start && words+n > budget {
				break
			}
			words += n
			end++
		}

		out = append(out, strings.Join(sentences[start:end], " "))
		if end == len(sentences) {
			break
		}
		next := end - c.overlapSentences
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// splitWords is the fallback for terminator-free text (tables, part lists).
func (c *Chunker) splitWords(text string) []string {
	words := strings.Fields(text)
	budget := c.wordBudget()

	var out []string
	for start := 0; start < len(words); start += budget {
		end := start + budget
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
