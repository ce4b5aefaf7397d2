// Package identity turns raw vision-extraction output into a device
// identity decision and matches free-text entries against the catalog.
package identity

import (
	"github.com/medassist/device-assistant/internal/config"
	"github.com/medassist/device-assistant/internal/model"
)

// Classification is the identity decision for one extraction: which fields
// cleared the detection threshold, and the cosmetic confidence tier of each.
type Classification struct {
	Status           model.DetectionStatus `json:"status"`
	Manufacturer     model.Field           `json:"manufacturer"`
	Model            model.Field           `json:"model"`
	ManufacturerTier model.ConfidenceTier  `json:"manufacturer_tier"`
	ModelTier        model.ConfidenceTier  `json:"model_tier"`
}

// Classifier applies the detection and tier thresholds.
type Classifier struct {
	cfg config.IdentityConfig
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(cfg config.IdentityConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify is a pure function of the extraction result. A field is detected
// only when its value is present and its confidence clears the detection
// threshold; the two fields are evaluated independently. Tiers are computed
// from the raw confidences regardless of detection.
func (c *Classifier) Classify(ext model.ExtractionResult) Classification {
	mfrDetected := ext.Manufacturer.Present && ext.ManufacturerConfidence >= c.cfg.DetectionThreshold
	modelDetected := ext.Model.Present && ext.ModelConfidence >= c.cfg.DetectionThreshold

	out := Classification{
		ManufacturerTier: c.TierFor(ext.ManufacturerConfidence),
		ModelTier:        c.TierFor(ext.ModelConfidence),
	}
	if mfrDetected {
		out.Manufacturer = ext.Manufacturer
	}
	if modelDetected {
		out.Model = ext.Model
	}

	switch {
	case mfrDetected && modelDetected:
		out.Status = model.StatusDetected
	case mfrDetected || modelDetected:
		out.Status = model.StatusPartial
	default:
		out.Status = model.StatusUnknown
	}
	return out
}

// TierFor maps a confidence score to its display tier. Purely informational;
// independent of the detection threshold.
func (c *Classifier) TierFor(confidence float64) model.ConfidenceTier {
	switch {
	case confidence >= c.cfg.HighTier:
		return model.TierHigh
	case confidence >= c.cfg.MediumTier:
		return model.TierMedium
	default:
		return model.TierLow
	}
}
