// Package api exposes the assistant's core over a small JSON API consumed
// by the UI layer.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/medassist/device-assistant/internal/catalog"
	"github.com/medassist/device-assistant/internal/identity"
	"github.com/medassist/device-assistant/internal/manualimages"
	"github.com/medassist/device-assistant/internal/model"
)

// VisionExtractor analyzes an uploaded device photo.
type VisionExtractor interface {
	Extract(ctx context.Context, imageData []byte, mediaType string) (model.ExtractionResult, error)
}

// Answerer runs the per-question answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, identity model.DeviceIdentity, question string, history []model.ConversationTurn) (model.Answer, error)
}

// DeviceMatcher matches free-text device entries against the catalog.
type DeviceMatcher interface {
	Match(ctx context.Context, manufacturer, model_ string) identity.MatchResult
}

// ManualChecker reports manual availability without touching the network.
type ManualChecker interface {
	Available(identity model.DeviceIdentity) (string, bool)
}

// Server holds the API dependencies.
type Server struct {
	catalog    *catalog.Catalog
	classifier *identity.Classifier
	matcher    DeviceMatcher
	extractor  VisionExtractor
	answerer   Answerer
	manuals    ManualChecker
	uploadsDir string
	imagesDir  string
}

// NewServer wires the API server.
func NewServer(
	cat *catalog.Catalog,
	classifier *identity.Classifier,
	matcher DeviceMatcher,
	extractor VisionExtractor,
	answerer Answerer,
	manuals ManualChecker,
	uploadsDir, imagesDir string,
) *Server {
	return &Server{
		catalog:    cat,
		classifier: classifier,
		matcher:    matcher,
		extractor:  extractor,
		answerer:   answerer,
		manuals:    manuals,
		uploadsDir: uploadsDir,
		imagesDir:  imagesDir,
	}
}

// Router builds the HTTP handler. CORS is permissive: the UI is an external
// collaborator served from anywhere.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/manufacturers", s.handleManufacturers)
		r.Get("/models/{manufacturer}", s.handleModels)
		r.Post("/extract-model", s.handleExtractModel)
		r.Post("/match-device", s.handleMatchDevice)
		r.Get("/check-manual/{manufacturer}/{model}", s.handleCheckManual)
		r.Post("/chat", s.handleChat)
		r.Get("/devices-by-type", s.handleDevicesByType)
	})

	// Extracted page images referenced by answer citations.
	r.Handle(manualimages.URLPrefix+"/*",
		http.StripPrefix(manualimages.URLPrefix+"/", http.FileServer(http.Dir(s.imagesDir))))

	return r
}
