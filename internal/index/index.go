// Package index builds, persists and loads per-manual vector indexes.
package index

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/medassist/device-assistant/internal/model"
	"github.com/medassist/device-assistant/internal/ocr"
)

// Embedder produces one embedding vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is a loaded, searchable per-manual index. Chunks are ordered by seq.
type Index struct {
	ManualID string
	Chunks   []model.DocumentChunk
}

// ManualID derives the stable index identity from a manual's file name.
func ManualID(manualPath string) string {
	base := filepath.Base(manualPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Service builds and caches per-manual indexes.
type Service struct {
	store     *Store
	extractor ocr.Extractor
	embedder  Embedder
	chunker   *Chunker
	batchSize int
	limiter   *rate.Limiter
}

// NewService creates an index Service. batchSize bounds texts per embedding
// call; rps bounds embedding calls per second.
func NewService(store *Store, extractor ocr.Extractor, embedder Embedder, chunker *Chunker, batchSize, rps int) *Service {
	if batchSize <= 0 {
		batchSize = 32
	}
	if rps <= 0 {
		rps = 4
	}
	return &Service{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		chunker:   chunker,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// GetIndex returns the index for a manual, loading the persisted build when
// one exists and building (extract, chunk, embed, persist) otherwise. The
// persisted path is cheap; only a first-time build touches the extraction
// and embedding services. Two concurrent first-time builds may duplicate
// work, but persistence is transactional so stored artifacts stay whole.
func (s *Service) GetIndex(ctx context.Context, manualPath string) (*Index, error) {
	manualID := ManualID(manualPath)

	existing, err := s.store.Load(ctx, manualID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		zap.L().Debug("loaded persisted index",
			zap.String("manual", manualID),
			zap.Int("chunks", len(existing.Chunks)),
		)
		return existing, nil
	}

	start := time.Now()
	zap.L().Info("building index", zap.String("manual", manualID))

	pages, err := s.extractor.ExtractPages(ctx, manualPath)
	if err != nil {
		return nil, eris.Wrapf(err, "index: extract %s", manualID)
	}

	chunks := s.chunker.ChunkPages(manualID, pages)
	if len(chunks) == 0 {
		return nil, eris.Errorf("index: no text extracted from %s", manualPath)
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, manualID, manualPath, chunks); err != nil {
		return nil, err
	}

	zap.L().Info("index built",
		zap.String("manual", manualID),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("took", time.Since(start)),
	)

	return &Index{ManualID: manualID, Chunks: chunks}, nil
}

// embedChunks fills chunk embeddings batch by batch. Batches run
// concurrently under the rate limiter; each writes a disjoint slice range.
func (s *Service) embedChunks(ctx context.Context, chunks []model.DocumentChunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			if err := s.limiter.Wait(gctx); err != nil {
				return err
			}

			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}

			vecs, err := s.embedder.Embed(gctx, texts)
			if err != nil {
				return eris.Wrap(err, "index: embed chunk batch")
			}
			if len(vecs) != len(batch) {
				return eris.Errorf("index: embedder returned %d vectors for %d chunks", len(vecs), len(batch))
			}

			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return nil
		})
	}

	return g.Wait()
}
