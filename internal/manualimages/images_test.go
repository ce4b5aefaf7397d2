package manualimages

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func TestImagesForPagesCached(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "apollo", "page_41.png"), 850, 1100)

	s := NewService(dir, "pdftoppm-not-installed")
	got := s.ImagesForPages(context.Background(), "/manuals/apollo.pdf", []string{"41"})

	require.Len(t, got, 1)
	assert.Equal(t, "/manual_images/apollo/page_41.png", got[0].URL)
	assert.Equal(t, "41", got[0].Page)
	assert.Equal(t, 850, got[0].Width)
	assert.Equal(t, 1100, got[0].Height)
}

func TestImagesForPagesSkipsBadLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "apollo", "page_2.png"), 10, 10)

	s := NewService(dir, "pdftoppm-not-installed")
	got := s.ImagesForPages(context.Background(), "/manuals/apollo.pdf",
		[]string{"iv", "0", "", "2"})

	require.Len(t, got, 1, "only the numeric, cached page survives")
	assert.Equal(t, "2", got[0].Page)
}

func TestImagesForPagesRenderFailure(t *testing.T) {
	t.Parallel()

	s := NewService(t.TempDir(), "pdftoppm-not-installed")
	got := s.ImagesForPages(context.Background(), "/manuals/apollo.pdf", []string{"3"})
	assert.Empty(t, got, "unrenderable pages are skipped, not fatal")
}
