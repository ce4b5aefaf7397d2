// Package manualimages renders manual pages referenced by retrieved chunks
// into images servable alongside answers. Lookups are best-effort: a page
// that cannot be rendered is skipped, never failing the answer.
package manualimages

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/index"
	"github.com/medassist/device-assistant/internal/model"
)

// URLPrefix is the path under which the API serves extracted page images.
const URLPrefix = "/manual_images"

// Service renders and caches manual page images using pdftoppm.
type Service struct {
	imagesDir string
	binPath   string
}

// NewService creates a Service caching rendered pages under imagesDir. If
// binPath is empty, "pdftoppm" is used.
func NewService(imagesDir, binPath string) *Service {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	return &Service{imagesDir: imagesDir, binPath: binPath}
}

// ImagesForPages returns image references for the given 1-based page labels
// of a manual, rendering any page not already cached. Unrenderable pages are
// logged and skipped.
func (s *Service) ImagesForPages(ctx context.Context, manualPath string, pageLabels []string) []model.PageImage {
	manualID := index.ManualID(manualPath)

	var out []model.PageImage
	for _, label := range pageLabels {
		img, err := s.pageImage(ctx, manualPath, manualID, label)
		if err != nil {
			zap.L().Warn("page image unavailable",
				zap.String("manual", manualID),
				zap.String("page", label),
				zap.Error(err),
			)
			continue
		}
		out = append(out, img)
	}
	return out
}

func (s *Service) pageImage(ctx context.Context, manualPath, manualID, label string) (model.PageImage, error) {
	page, err := strconv.Atoi(label)
	if err != nil || page < 1 {
		return model.PageImage{}, eris.Errorf("manualimages: bad page label %q", label)
	}

	filename := fmt.Sprintf("page_%d.png", page)
	cached := filepath.Join(s.imagesDir, manualID, filename)

	if _, err := os.Stat(cached); err != nil {
		if err := s.render(ctx, manualPath, manualID, page); err != nil {
			return model.PageImage{}, err
		}
	}

	width, height, err := pngDimensions(cached)
	if err != nil {
		return model.PageImage{}, err
	}

	return model.PageImage{
		URL:    fmt.Sprintf("%s/%s/%s", URLPrefix, manualID, filename),
		Page:   label,
		Width:  width,
		Height: height,
	}, nil
}

// render shells out to pdftoppm for a single page. pdftoppm writes
// <prefix>-<page>.png (zero-padded for multi-digit page counts), so the
// output is renamed to the stable cache name.
func (s *Service) render(ctx context.Context, manualPath, manualID string, page int) error {
	dir := filepath.Join(s.imagesDir, manualID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "manualimages: create images dir")
	}

	prefix := filepath.Join(dir, fmt.Sprintf("render_%d", page))
	pageArg := strconv.Itoa(page)

	cmd := exec.CommandContext(ctx, s.binPath,
		"-png", "-r", "100", "-f", pageArg, "-l", pageArg, manualPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "manualimages: pdftoppm page %d: %s", page, stderr.String())
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return eris.Errorf("manualimages: pdftoppm produced no output for page %d", page)
	}

	dest := filepath.Join(dir, fmt.Sprintf("page_%d.png", page))
	if err := os.Rename(matches[0], dest); err != nil {
		return eris.Wrap(err, "manualimages: rename rendered page")
	}
	return nil
}

func pngDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "manualimages: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "manualimages: decode %s", path)
	}
	return cfg.Width, cfg.Height, nil
}
