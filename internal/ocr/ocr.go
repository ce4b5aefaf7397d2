// Package ocr extracts text content from PDF manuals, page by page.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/medassist/device-assistant/internal/config"
)

// Page is the extracted text of a single PDF page. Labels are 1-based and
// stable across runs; they feed citations and page-image lookup.
type Page struct {
	Label string
	Text  string
}

// Extractor extracts per-page text from PDF files.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]Page, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}
