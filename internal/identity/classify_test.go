package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medassist/device-assistant/internal/config"
	"github.com/medassist/device-assistant/internal/model"
)

func testClassifier() *Classifier {
	return NewClassifier(config.IdentityConfig{
		DetectionThreshold: 0.30,
		HighTier:           0.80,
		MediumTier:         0.60,
	})
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ext        model.ExtractionResult
		wantStatus model.DetectionStatus
		wantMfr    string
		wantModel  string
	}{
		{
			name: "both fields confident",
			ext: model.ExtractionResult{
				Manufacturer:           model.NewField("Dräger"),
				Model:                  model.NewField("Fabius GS"),
				ManufacturerConfidence: 0.95,
				ModelConfidence:        0.87,
			},
			wantStatus: model.StatusDetected,
			wantMfr:    "Dräger",
			wantModel:  "Fabius GS",
		},
		{
			name: "model below threshold",
			ext: model.ExtractionResult{
				Manufacturer:           model.NewField("GE"),
				Model:                  model.NewField("B650"),
				ManufacturerConfidence: 0.9,
				ModelConfidence:        0.2,
			},
			wantStatus: model.StatusPartial,
			wantMfr:    "GE",
		},
		{
			name: "threshold is inclusive",
			ext: model.ExtractionResult{
				Manufacturer:           model.NewField("GE"),
				Model:                  model.NewField("B650"),
				ManufacturerConfidence: 0.30,
				ModelConfidence:        0.30,
			},
			wantStatus: model.StatusDetected,
			wantMfr:    "GE",
			wantModel:  "B650",
		},
		{
			name: "confident but absent value",
			ext: model.ExtractionResult{
				Model:                  model.NewField("8015"),
				ManufacturerConfidence: 0.9, // no value; confidence alone is not detection
				ModelConfidence:        0.8,
			},
			wantStatus: model.StatusPartial,
			wantModel:  "8015",
		},
		{
			name: "values present but neither confident",
			ext: model.ExtractionResult{
				Manufacturer:           model.NewField("Drager"),
				Model:                  model.NewField("Fabius"),
				ManufacturerConfidence: 0.29,
				ModelConfidence:        0.29,
			},
			wantStatus: model.StatusUnknown,
		},
		{
			name:       "nothing detected",
			ext:        model.ExtractionResult{},
			wantStatus: model.StatusUnknown,
		},
	}

	c := testClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.ext)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantMfr, got.Manufacturer.Value)
			assert.Equal(t, tt.wantModel, got.Model.Value)
		})
	}
}

func TestClassifyFieldsAreIndependent(t *testing.T) {
	t.Parallel()

	c := testClassifier()

	// A low manufacturer confidence never drags down a confident model.
	got := c.Classify(model.ExtractionResult{
		Manufacturer:           model.NewField("Mindray"),
		Model:                  model.NewField("EX65"),
		ManufacturerConfidence: 0.1,
		ModelConfidence:        0.99,
	})
	assert.Equal(t, model.StatusPartial, got.Status)
	assert.False(t, got.Manufacturer.Present)
	assert.Equal(t, "EX65", got.Model.Value)
	assert.Equal(t, model.TierLow, got.ManufacturerTier)
	assert.Equal(t, model.TierHigh, got.ModelTier)
}

func TestTierFor(t *testing.T) {
	t.Parallel()

	c := testClassifier()

	tests := []struct {
		confidence float64
		want       model.ConfidenceTier
	}{
		{0.95, model.TierHigh},
		{0.80, model.TierHigh},
		{0.79, model.TierMedium},
		{0.60, model.TierMedium},
		{0.59, model.TierLow},
		{0, model.TierLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.TierFor(tt.confidence), "confidence %.2f", tt.confidence)
	}
}
