package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/answer"
	"github.com/medassist/device-assistant/internal/api"
	"github.com/medassist/device-assistant/internal/catalog"
	"github.com/medassist/device-assistant/internal/identity"
	"github.com/medassist/device-assistant/internal/index"
	"github.com/medassist/device-assistant/internal/manual"
	"github.com/medassist/device-assistant/internal/manualimages"
	"github.com/medassist/device-assistant/internal/ocr"
	"github.com/medassist/device-assistant/internal/retrieve"
	"github.com/medassist/device-assistant/internal/vision"
	anthropicpkg "github.com/medassist/device-assistant/pkg/anthropic"
	"github.com/medassist/device-assistant/pkg/jina"
)

// assistantEnv holds all initialized clients and services needed by the
// serve/index/ask commands.
type assistantEnv struct {
	Catalog    *catalog.Catalog
	Store      *index.Store
	Resolver   *manual.Resolver
	Indexes    *index.Service
	Composer   *answer.Composer
	Classifier *identity.Classifier
	Matcher    *identity.CatalogMatcher
	Vision     *vision.Extractor
	Server     *api.Server
}

// Close releases resources held by the assistant environment.
func (ae *assistantEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initAssistant loads the catalog, opens the index store, sets up the API
// clients, and wires the answering pipeline. Callers should defer
// env.Close().
func initAssistant(ctx context.Context) (*assistantEnv, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	st, err := index.NewStore(cfg.Storage.IndexDB)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate index store")
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithModel(cfg.Jina.Model),
	)
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	resolver := manual.NewResolver(cat, cfg.Storage.ManualsDir)
	chunker := index.NewChunker(cfg.RAG.ChunkTokenTarget, cfg.RAG.ChunkOverlap)
	indexes := index.NewService(st, extractor, jinaClient, chunker, cfg.RAG.EmbedBatchSize, cfg.RAG.EmbedRPS)
	retriever := retrieve.NewRetriever(jinaClient, cfg.RAG.TopK)
	generator := answer.NewAnthropicGenerator(anthropicClient, cfg.Anthropic.ChatModel, cfg.Anthropic.MaxTokens)
	images := manualimages.NewService(cfg.Storage.ImagesDir, cfg.OCR.PdfToPpmPath)

	composer := answer.NewComposer(resolver, indexes, retriever, generator, images,
		cfg.RAG.HistoryWindow, cfg.RAG.MaxAnswerImages)

	classifier := identity.NewClassifier(cfg.Identity)
	matcher := identity.NewCatalogMatcher(cat, identity.NewLevenshteinMatcher(), cfg.Identity.MatchThreshold)
	visionExtractor := vision.NewExtractor(anthropicClient, cfg.Anthropic.VisionModel, cfg.Anthropic.MaxTokens)

	srv := api.NewServer(cat, classifier, matcher, visionExtractor, composer, resolver,
		cfg.Storage.UploadsDir, cfg.Storage.ImagesDir)

	zap.L().Info("assistant initialized",
		zap.Int("catalog_devices", len(cat.Identities())),
		zap.String("index_db", cfg.Storage.IndexDB),
	)

	return &assistantEnv{
		Catalog:    cat,
		Store:      st,
		Resolver:   resolver,
		Indexes:    indexes,
		Composer:   composer,
		Classifier: classifier,
		Matcher:    matcher,
		Vision:     visionExtractor,
		Server:     srv,
	}, nil
}
