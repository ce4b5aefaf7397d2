package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/device-assistant/internal/config"
)

func TestNewExtractor_Local(t *testing.T) {
	t.Parallel()

	ext, err := NewExtractor(config.OCRConfig{Provider: "local"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_DefaultsToLocal(t *testing.T) {
	t.Parallel()

	ext, err := NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor(config.OCRConfig{Provider: "cloud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestSplitPages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []Page
	}{
		{
			name: "single page no separator",
			raw:  "only page",
			want: []Page{{Label: "1", Text: "only page"}},
		},
		{
			name: "two pages",
			raw:  "first\fsecond",
			want: []Page{
				{Label: "1", Text: "first"},
				{Label: "2", Text: "second"},
			},
		},
		{
			name: "trailing form feed",
			raw:  "first\fsecond\f",
			want: []Page{
				{Label: "1", Text: "first"},
				{Label: "2", Text: "second"},
			},
		},
		{
			name: "blank middle page keeps label alignment",
			raw:  "first\f\fthird",
			want: []Page{
				{Label: "1", Text: "first"},
				{Label: "2", Text: ""},
				{Label: "3", Text: "third"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SplitPages(tt.raw))
		})
	}
}
