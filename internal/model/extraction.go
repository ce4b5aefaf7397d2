package model

import "strings"

// ExtractionErrorCode enumerates the structured error states the vision
// service reports alongside an extraction.
type ExtractionErrorCode string

const (
	ExtractionErrorNone         ExtractionErrorCode = "ERROR_NONE"
	ExtractionErrorUnclearImage ExtractionErrorCode = "ERROR_UNCLEAR_IMAGE"
	ExtractionErrorNoDevice     ExtractionErrorCode = "ERROR_NO_DEVICE"
	ExtractionErrorPartialInfo  ExtractionErrorCode = "ERROR_PARTIAL_INFO"
	ExtractionErrorAPIFailure   ExtractionErrorCode = "ERROR_API_FAILURE"
	ExtractionErrorParseFailure ExtractionErrorCode = "ERROR_PARSE_FAILURE"
)

// Valid reports whether the code is one of the defined enum values.
func (c ExtractionErrorCode) Valid() bool {
	switch c {
	case ExtractionErrorNone, ExtractionErrorUnclearImage, ExtractionErrorNoDevice,
		ExtractionErrorPartialInfo, ExtractionErrorAPIFailure, ExtractionErrorParseFailure:
		return true
	}
	return false
}

// Field is an extracted string that may be absent. The zero value is absent;
// a present field always holds a non-empty trimmed value.
type Field struct {
	Value   string `json:"value,omitempty"`
	Present bool   `json:"present"`
}

// NewField builds a Field, treating empty or whitespace-only values as absent.
func NewField(value string) Field {
	value = strings.TrimSpace(value)
	if value == "" {
		return Field{}
	}
	return Field{Value: value, Present: true}
}

// ExtractionResult is the validated output of one vision extraction.
// The two confidences are evaluated independently per field; neither
// influences the other. Immutable once produced.
type ExtractionResult struct {
	Manufacturer           Field               `json:"manufacturer"`
	Model                  Field               `json:"model_number"`
	ManufacturerConfidence float64             `json:"manufacturer_confidence"`
	ModelConfidence        float64             `json:"model_number_confidence"`
	ErrorCode              ExtractionErrorCode `json:"error_code"`
	ErrorString            string              `json:"error_string,omitempty"`
	Suggestion             string              `json:"suggestion,omitempty"`
}

// DetectionStatus classifies an extraction by how many fields cleared the
// detection threshold.
type DetectionStatus string

const (
	StatusDetected DetectionStatus = "detected"
	StatusPartial  DetectionStatus = "partial"
	StatusUnknown  DetectionStatus = "unknown"
)

// ConfidenceTier is the cosmetic display tier for a single confidence score.
// Tiering is independent of the detection threshold.
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)
