// Package retrieve ranks index chunks against a question by embedding
// similarity.
package retrieve

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/medassist/device-assistant/internal/index"
	"github.com/medassist/device-assistant/internal/model"
)

// QueryEmbedder embeds question text for similarity search.
type QueryEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever finds the chunks most relevant to a question.
type Retriever struct {
	embedder QueryEmbedder
	topK     int
}

// NewRetriever creates a Retriever returning at most topK results
// (default 3).
func NewRetriever(embedder QueryEmbedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{embedder: embedder, topK: topK}
}

// Retrieve returns up to topK chunks ordered by descending relevance, ties
// broken by original chunk order. Similarity is computed from the question
// text alone: conversation history must not bias retrieval toward earlier
// topics.
func (r *Retriever) Retrieve(ctx context.Context, idx *index.Index, question string) ([]model.RetrievedChunk, error) {
	if idx == nil || len(idx.Chunks) == 0 {
		return nil, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, eris.Wrap(err, "retrieve: embed question")
	}
	if len(vecs) != 1 {
		return nil, eris.Errorf("retrieve: expected 1 query vector, got %d", len(vecs))
	}
	query := vecs[0]

	scored := make([]model.RetrievedChunk, len(idx.Chunks))
	for i, chunk := range idx.Chunks {
		scored[i] = model.RetrievedChunk{
			Chunk: chunk,
			Score: CosineSimilarity(query, chunk.Embedding),
		}
	}

	// Stable keeps seq order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
